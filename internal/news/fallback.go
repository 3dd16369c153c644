package news

import "time"

func mustDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fallbackItems is the curated ocean-science list compiled into the service.
var fallbackItems = []Item{
	{
		Title:       "Argo Floats Reveal Accelerating Warming in the Deep Indian Ocean",
		Description: "Two decades of profiling float data show heat penetrating below 2,000 metres in the Indian Ocean faster than earlier models predicted.",
		URL:         "https://argo.ucsd.edu/news/deep-indian-ocean-warming",
		Image:       "https://argo.ucsd.edu/wp-content/uploads/sites/361/2020/06/float_deployment.jpg",
		PublishedAt: mustDate("2025-01-14T09:00:00Z"),
		Source:      "Argo Program",
	},
	{
		Title:       "Marine Heatwaves Are Becoming Longer and More Frequent",
		Description: "A global analysis of sea surface temperature records finds marine heatwave days have more than doubled since the 1980s, stressing coral reefs and fisheries.",
		URL:         "https://www.noaa.gov/news/marine-heatwaves-longer-more-frequent",
		Image:       "https://www.noaa.gov/sites/default/files/2022-03/marine-heatwave.jpg",
		PublishedAt: mustDate("2025-01-10T14:30:00Z"),
		Source:      "NOAA",
	},
	{
		Title:       "Bay of Bengal Salinity Shifts Linked to Monsoon Variability",
		Description: "Researchers combining satellite salinity and in-situ observations connect freshwater plumes in the Bay of Bengal to changes in monsoon rainfall.",
		URL:         "https://incois.gov.in/news/bay-of-bengal-salinity-monsoon",
		Image:       "https://incois.gov.in/images/news/bay_of_bengal.jpg",
		PublishedAt: mustDate("2025-01-08T06:15:00Z"),
		Source:      "INCOIS",
	},
	{
		Title:       "Global Sea Level Rise Reached a Record Rate Last Year",
		Description: "Satellite altimetry shows sea level rose faster than expected, driven by ocean thermal expansion and melting land ice.",
		URL:         "https://sealevel.nasa.gov/news/record-rate-sea-level-rise",
		Image:       "https://sealevel.nasa.gov/system/news_items/main_images/record_rate.jpg",
		PublishedAt: mustDate("2025-01-06T16:00:00Z"),
		Source:      "NASA Sea Level Change",
	},
	{
		Title:       "Ocean Acidification Threatens Shellfish Along Coastal Upwelling Zones",
		Description: "Long-term monitoring off the Pacific coast documents falling pH levels that hinder shell formation in oysters and pteropods.",
		URL:         "https://www.pmel.noaa.gov/co2/story/coastal-acidification-shellfish",
		Image:       "https://www.pmel.noaa.gov/co2/files/coastal_acidification.jpg",
		PublishedAt: mustDate("2025-01-03T11:45:00Z"),
		Source:      "NOAA PMEL",
	},
	{
		Title:       "Deep-Sea Expedition Maps Hydrothermal Vents in the Indian Ocean Ridge",
		Description: "An autonomous underwater vehicle survey charted previously unknown hydrothermal vent fields and their chemosynthetic ecosystems.",
		URL:         "https://www.whoi.edu/press-room/news-release/indian-ocean-ridge-vents",
		Image:       "https://www.whoi.edu/wp-content/uploads/2025/01/vent-field.jpg",
		PublishedAt: mustDate("2024-12-29T08:20:00Z"),
		Source:      "Woods Hole Oceanographic Institution",
	},
	{
		Title:       "Coral Bleaching Event Confirmed Across Multiple Ocean Basins",
		Description: "Reef scientists confirm a global-scale bleaching event as sustained ocean temperatures exceed coral thermal tolerance thresholds.",
		URL:         "https://coralreefwatch.noaa.gov/news/global-bleaching-event",
		Image:       "https://coralreefwatch.noaa.gov/images/news/bleached_reef.jpg",
		PublishedAt: mustDate("2024-12-20T13:10:00Z"),
		Source:      "NOAA Coral Reef Watch",
	},
	{
		Title:       "Atlantic Overturning Circulation Shows Signs of Slowing",
		Description: "New reconstructions of the Atlantic Meridional Overturning Circulation suggest a weakening trend with implications for regional climate and sea level.",
		URL:         "https://www.metoffice.gov.uk/research/news/amoc-slowing",
		Image:       "https://www.metoffice.gov.uk/binaries/content/gallery/metofficegovuk/images/research/amoc.jpg",
		PublishedAt: mustDate("2024-12-15T10:00:00Z"),
		Source:      "Met Office",
	},
	{
		Title:       "Arabian Sea Oxygen Minimum Zone Expanding, Study Finds",
		Description: "Decades of dissolved oxygen profiles reveal the Arabian Sea oxygen minimum zone is thickening, affecting fish habitat and nitrogen cycling.",
		URL:         "https://www.nio.res.in/news/arabian-sea-oxygen-minimum-zone",
		Image:       "https://www.nio.res.in/images/news/arabian_sea_omz.jpg",
		PublishedAt: mustDate("2024-12-10T07:30:00Z"),
		Source:      "CSIR-NIO",
	},
	{
		Title:       "Satellite Chlorophyll Data Track Phytoplankton Blooms in Real Time",
		Description: "Ocean colour sensors now provide near-real-time maps of phytoplankton blooms that help fisheries and harmful algal bloom warnings.",
		URL:         "https://oceancolor.gsfc.nasa.gov/news/realtime-phytoplankton-blooms",
		Image:       "https://oceancolor.gsfc.nasa.gov/images/news/bloom.jpg",
		PublishedAt: mustDate("2024-12-05T12:00:00Z"),
		Source:      "NASA Ocean Color",
	},
	{
		Title:       "Tropical Cyclone Intensity Tied to Upper-Ocean Heat Content",
		Description: "Float and glider observations show rapid intensification of cyclones over warm ocean eddies, improving forecasts for coastal communities.",
		URL:         "https://www.aoml.noaa.gov/news/cyclone-ocean-heat-content",
		Image:       "https://www.aoml.noaa.gov/wp-content/uploads/2024/12/glider.jpg",
		PublishedAt: mustDate("2024-11-28T15:45:00Z"),
		Source:      "NOAA AOML",
	},
	{
		Title:       "Antarctic Sea Ice Extent Hits New Winter Low",
		Description: "Southern Ocean observations record the lowest winter sea ice extent on record, raising questions about ocean warming beneath the ice.",
		URL:         "https://nsidc.org/news/antarctic-sea-ice-winter-low",
		Image:       "https://nsidc.org/sites/default/files/images/antarctic_sea_ice.jpg",
		PublishedAt: mustDate("2024-11-20T09:00:00Z"),
		Source:      "NSIDC",
	},
}

// Fallback returns a copy of the curated fallback list.
func Fallback() []Item {
	out := make([]Item, len(fallbackItems))
	copy(out, fallbackItems)
	return out
}

// FallbackN returns the first n curated items.
func FallbackN(n int) []Item {
	if n > len(fallbackItems) {
		n = len(fallbackItems)
	}
	out := make([]Item, n)
	copy(out, fallbackItems[:n])
	return out
}
