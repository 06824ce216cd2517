package vi

import "fmt"

type tier struct {
	below   float64
	message string
}

// Classification tables per index. Bins are ordered; the first tier whose
// upper bound exceeds the mean wins, the last tier is open-ended.
var tiers = map[Type][]tier{
	NDVI: {
		{0.2, "Bare soil or water - field not yet planted or left fallow"},
		{0.4, "Early growth - crop emerging and starting to tiller"},
		{0.6, "Moderate green canopy - foliage becoming dense"},
		{0, "Very dense green canopy - crop at full vigor"},
	},
	EVI: {
		{0.2, "Not yet emerged - crop recently planted or not recovered"},
		{0.4, "Seedling stage - crop turning green and leafing out"},
		{0.6, "Vegetative growth - canopy closing, good greenness"},
		{0, "Peak condition - deep green crop at heading stage"},
	},
	GNDVI: {
		{0.3, "Nitrogen deficient - yellowing leaves, weak greenness"},
		{0.6, "Moderate - crop developing normally"},
		{0.8, "Deep green - healthy crop with strong leaf color"},
		{0, "Very high greenness - dense leaf canopy"},
	},
	NDWI: {
		{0.0, "Dry soil - low moisture, no standing water"},
		{0.2, "Slightly moist - early signs of water stress"},
		{0.4, "Adequate moisture - suitable conditions for the crop"},
		{0, "Waterlogged - standing or abundant water, suits early-stage crops"},
	},
	SAVI: {
		{0.2, "Bare soil - vegetation not covering the ground"},
		{0.4, "Partial cover - crop starting to shade the soil"},
		{0.6, "Moderate - green crop with good ground cover"},
		{0, "Very dense - heavy green cover across the field"},
	},
	VCI: {
		{20, "Severe stress - crop damaged by water or nutrient deficit"},
		{40, "Stressed - weak crop with yellowing leaves"},
		{60, "Fair - crop growing normally"},
		{80, "Fairly good - green leaves, healthy condition"},
		{0, "Excellent - deep green crop at full vigor"},
	},
}

// Classify maps a mean index value to its agronomic interpretation.
func Classify(mean float64, t Type) string {
	bins, ok := tiers[t]
	if !ok {
		return fmt.Sprintf("Mean %s value: %.3f", t, mean)
	}
	for i, bin := range bins {
		if i == len(bins)-1 || mean < bin.below {
			return bin.message
		}
	}
	return bins[len(bins)-1].message
}
