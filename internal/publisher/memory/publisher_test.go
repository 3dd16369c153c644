package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ocean-news/internal/news"
)

func TestPublisherRecordsEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "news.refreshed", news.RefreshEvent{ArticleCount: 9})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "news.refreshed", news.RefreshEvent{ArticleCount: 7})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "news.refreshed", msgs[0].Event)
	require.Equal(t, 7, msgs[1].Payload.(news.RefreshEvent).ArticleCount)

	msgs[0].Event = "changed"
	require.Equal(t, "news.refreshed", pub.Messages()[0].Event)
	require.NoError(t, pub.Close())
}
