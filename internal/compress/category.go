package compress

// Category is the content class a page is scored into.
type Category int

const (
	TextDense Category = iota
	MixedContent
	ImageHeavy
	ComplexBackground
	numCategories
)

var categoryNames = [numCategories]string{"text_dense", "mixed_content", "image_heavy", "complex_background"}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Profile holds the preprocessing parameters applied to a category.
type Profile struct {
	MaxDimension   int
	Quality        int
	ColorReduction bool
	Sharpen        bool
}

// CategorySpec pairs a category's budget weight with its profile.
type CategorySpec struct {
	Importance float64
	Profile    Profile
}

// Rules are the ordered classification thresholds. Comparisons are strict.
type Rules struct {
	TextEdgeMin        float64 // edge density above which a page may be text
	TextComplexityMax  float64 // ...provided its color complexity stays below this
	ImageComplexityMin float64
	MixedEdgeMin       float64
}

// Tuning is the immutable parameter set for a job. Pass it by value.
type Tuning struct {
	Categories [numCategories]CategorySpec
	Rules      Rules

	// FallbackImportance applies to a page whose category is outside the table.
	FallbackImportance float64
	// MinLongEdge is the long-edge floor for preprocessing and the canvas fallback.
	MinLongEdge int
	// FloorBytes is the smallest per-page budget the controller will set.
	FloorBytes    int
	MaxPasses     int
	ScaleLadder   []float64
	QualityLadder []int

	LandscapeAspect  float64
	PortraitAspect   float64
	ProjectionFactor float64
	OrientationThumb int
	ClassifyThumb    int
	EdgeBright       int
	PaletteColors    int

	SharpenRadius    float64
	SharpenPercent   int
	SharpenThreshold int
}

// DefaultTuning returns the production parameter set.
func DefaultTuning() Tuning {
	return Tuning{
		Categories: [numCategories]CategorySpec{
			TextDense:         {Importance: 1.0, Profile: Profile{MaxDimension: 1600, Quality: 75, ColorReduction: true, Sharpen: true}},
			MixedContent:      {Importance: 0.8, Profile: Profile{MaxDimension: 1400, Quality: 70}},
			ImageHeavy:        {Importance: 0.5, Profile: Profile{MaxDimension: 1200, Quality: 60}},
			ComplexBackground: {Importance: 0.6, Profile: Profile{MaxDimension: 1400, Quality: 65, ColorReduction: true, Sharpen: true}},
		},
		Rules: Rules{
			TextEdgeMin:        0.08,
			TextComplexityMax:  120,
			ImageComplexityMin: 220,
			MixedEdgeMin:       0.04,
		},
		FallbackImportance: 0.7,
		MinLongEdge:        1000,
		FloorBytes:         60 * 1024,
		MaxPasses:          2,
		ScaleLadder:        []float64{1.0, 0.95, 0.90, 0.85, 0.80},
		QualityLadder:      []int{75, 70, 65, 60, 55, 50},
		LandscapeAspect:    1.1,
		PortraitAspect:     0.9,
		ProjectionFactor:   1.25,
		OrientationThumb:   220,
		ClassifyThumb:      256,
		EdgeBright:         200,
		PaletteColors:      256,
		SharpenRadius:      1.2,
		SharpenPercent:     80,
		SharpenThreshold:   2,
	}
}

// Spec returns the table entry for c.
func (t Tuning) Spec(c Category) CategorySpec {
	if c < 0 || c >= numCategories {
		return CategorySpec{Importance: t.FallbackImportance, Profile: t.Categories[MixedContent].Profile}
	}
	return t.Categories[c]
}
