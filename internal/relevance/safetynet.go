package relevance

import (
	"regexp"

	"github.com/JakeFAU/ocean-news/internal/news"
)

// blockedPatterns match categories that repeatedly slip through keyword and
// classifier stages. A match removes the item unconditionally.
var blockedPatterns = []*regexp.Regexp{
	// entertainment, film, television, celebrities
	terms(`movie|film|box office|netflix|hollywood|bollywood|celebrity|celebrities|actor|actress|tv series|sitcom|trailer|premiere|web series`),
	// variety and cultural shows
	terms(`reality show|variety show|talk show|game show|k-drama|kdrama|anime|manga|idol group`),
	// gaming
	terms(`video game|mobile game|gaming|gamer|esport|e-sport|playstation|xbox|nintendo|fortnite|minecraft|roblox|steam sale`),
	// music and awards
	regexp.MustCompile(`(?i)k-pop|` + wordForms(`kpop|album|concert|music video|grammy|oscar|emmy|billboard|award show|red carpet|single release|tour dates`)),
	// dating and lifestyle
	terms(`dating|romance|relationship advice|horoscope|zodiac|wedding|engagement ring`),
	// finance and markets
	terms(`stock market|stock price|stock exchange|share price|shares|ipo|crypto|cryptocurrency|cryptocurrencies|bitcoin|ethereum|forex|nasdaq|dow jones|sensex|nifty|earnings call|quarterly result|dividend`),
	// sports
	terms(`cricket|football|soccer|nba|nfl|ipl|fifa|tennis|olympics|world cup|premier league|match score|tournament|championship`),
	// politics, unless the story is about ocean research funding
	terms(`election|campaign rally|campaign rallies|parliament session|senate vote|poll|prime minister|political party|political parties|opposition leader`),
	// general consumer tech
	terms(`iphone|android|smartphone|laptop|gadget|app update|social media|tiktok|instagram|chatbot launch|metaverse`),
	// cosmetics and fashion
	terms(`cosmetic|skincare|skin care|makeup|beauty product|fashion week|lipstick|perfume`),
	// food and restaurants
	terms(`recipe|restaurant|cuisine|chef|menu|food festival|sushi bar|seafood restaurant|dessert`),
}

// wordForms matches whole words from alternation along with their plural
// and simple inflected forms, so "mobile games" and "premiered" match too.
func wordForms(alternation string) string {
	return `\b(?:` + alternation + `)(?:s|es|ed|ing)?\b`
}

func terms(alternation string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + wordForms(alternation))
}

// politicsOceanFunding exempts political stories that are about ocean
// science funding or policy.
var politicsOceanFunding = regexp.MustCompile(`(?i)\b(ocean|marine|oceanographic|coastal)\b.*\b(funding|budget|grant|research program)\b|\b(funding|budget|grant|research program)\b.*\b(ocean|marine|oceanographic|coastal)\b`)

var politicsPattern = blockedPatterns[7]

// Blocked reports whether any safety net pattern matches the item.
func Blocked(item news.Item) bool {
	text := item.Title + " " + item.Description
	for _, pattern := range blockedPatterns {
		if !pattern.MatchString(text) {
			continue
		}
		if pattern == politicsPattern && politicsOceanFunding.MatchString(text) {
			continue
		}
		return true
	}
	return false
}

// SafetyNet removes blocked items, preserving order.
func SafetyNet(items []news.Item) []news.Item {
	out := make([]news.Item, 0, len(items))
	for _, item := range items {
		if !Blocked(item) {
			out = append(out, item)
		}
	}
	return out
}
