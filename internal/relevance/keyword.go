package relevance

import (
	"strings"

	"github.com/JakeFAU/ocean-news/internal/news"
)

// vocabulary is matched case-insensitively as a substring of title or
// description. Recall matters more than precision here.
var vocabulary = []string{
	"ocean", "oceanic", "oceanograph", "marine", "sea ", "seas", "sea-level", "sea level",
	"seawater", "seafloor", "seabed", "coast", "coastal", "shore", "tide", "tidal",
	"wave", "tsunami", "reef", "coral", "plankton", "phytoplankton", "algae", "algal",
	"fisher", "fish", "whale", "dolphin", "shark", "turtle", "kelp", "mangrove",
	"estuar", "lagoon", "gulf", "bay of bengal", "arabian sea", "indian ocean",
	"pacific", "atlantic", "arctic", "antarctic", "southern ocean", "mediterranean",
	"salinity", "sea surface temperature", "upwelling", "current", "el niño", "el nino",
	"la niña", "la nina", "monsoon", "cyclone", "hurricane", "typhoon", "storm surge",
	"argo", "float", "buoy", "glacier", "ice sheet", "sea ice", "iceberg",
	"climate", "warming", "heatwave", "acidification", "carbon dioxide", "deoxygenation",
	"hydrothermal", "deep-sea", "deep sea", "bathymetr", "maritime", "naval research",
	"noaa", "incois", "blue economy", "marine protected area",
}

// KeywordMatch reports whether the item mentions any vocabulary term.
func KeywordMatch(item news.Item) bool {
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, term := range vocabulary {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// PreFilter keeps items that match the keyword vocabulary, preserving order.
func PreFilter(items []news.Item) []news.Item {
	out := make([]news.Item, 0, len(items))
	for _, item := range items {
		if KeywordMatch(item) {
			out = append(out, item)
		}
	}
	return out
}
