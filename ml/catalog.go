package ml

// DefaultTarget is the label column of the BRFSS diabetes indicators dataset.
const DefaultTarget = "Diabetes_binary"

// catalog holds the BRFSS survey fields the service knows how to coerce and
// present. Columns outside the catalog fall back to a float field defaulting to 0.
var catalog = map[string]Field{
	"HighBP":               binaryField("HighBP", "High Blood Pressure", "High blood pressure (1 = yes, 0 = no)."),
	"HighChol":             binaryField("HighChol", "High Cholesterol", "High cholesterol (1 = yes, 0 = no)."),
	"CholCheck":            binaryField("CholCheck", "Cholesterol Checked (Last 5 Years)", "Had cholesterol check in the past 5 years (1 = yes, 0 = no)."),
	"Smoker":               binaryField("Smoker", "Smoker (100+ cigarettes lifetime)", "Smoked at least 100 cigarettes in lifetime (1 = yes, 0 = no)."),
	"Stroke":               binaryField("Stroke", "History of Stroke", "Ever told you had a stroke (1 = yes, 0 = no)."),
	"HeartDiseaseorAttack": binaryField("HeartDiseaseorAttack", "Heart Disease / Heart Attack History", "Coronary heart disease or heart attack history (1 = yes, 0 = no)."),
	"PhysActivity":         binaryField("PhysActivity", "Physical Activity (Past 30 Days)", "Physical activity in past 30 days (1 = yes, 0 = no)."),
	"Fruits":               binaryField("Fruits", "Eats Fruits Daily", "Consume fruit 1+ times per day (1 = yes, 0 = no)."),
	"Veggies":              binaryField("Veggies", "Eats Vegetables Daily", "Consume vegetables 1+ times per day (1 = yes, 0 = no)."),
	"HvyAlcoholConsump":    binaryField("HvyAlcoholConsump", "Heavy Alcohol Consumption", "Heavy alcohol consumption indicator (1 = yes, 0 = no)."),
	"AnyHealthcare":        binaryField("AnyHealthcare", "Has Healthcare Coverage", "Has any healthcare coverage (1 = yes, 0 = no)."),
	"NoDocbcCost":          binaryField("NoDocbcCost", "Could Not See Doctor Due to Cost", "Could not see doctor due to cost (1 = yes, 0 = no)."),
	"DiffWalk":             binaryField("DiffWalk", "Difficulty Walking / Climbing Stairs", "Serious difficulty walking/climbing stairs (1 = yes, 0 = no)."),
	"BMI": {
		Name: "BMI", Kind: KindFloat, Default: 25.0, Bound: atLeast(0),
		Label: "Body Mass Index (BMI)",
		Help:  "Body Mass Index. Higher BMI is often associated with higher diabetes risk.",
	},
	"GenHlth": {
		Name: "GenHlth", Kind: KindCategory, Default: 3, Bound: between(1, 5),
		Label: "Overall Health Rating",
		Help:  "General health rating (1=Excellent ... 5=Poor).",
	},
	"MentHlth": {
		Name: "MentHlth", Kind: KindCount, Default: 0, Bound: between(0, 30),
		Label: "Poor Mental Health Days (Past 30 Days)",
		Help:  "Days of poor mental health in past 30 days (0-30).",
	},
	"PhysHlth": {
		Name: "PhysHlth", Kind: KindCount, Default: 0, Bound: between(0, 30),
		Label: "Poor Physical Health Days (Past 30 Days)",
		Help:  "Days of poor physical health in past 30 days (0-30).",
	},
	"Sex": {
		Name: "Sex", Kind: KindCategory, Default: 1, Bound: between(0, 2),
		Label: "Sex (1=Male, 2=Female)",
		Help:  "Sex (dataset encoding). Confirm with the dataset codebook.",
	},
	"Age": {
		Name: "Age", Kind: KindCategory, Default: 8, Bound: between(1, 13),
		Label: "Age Group Code",
		Help:  "Age category code (BRFSS grouped categories).",
	},
	"Education": {
		Name: "Education", Kind: KindCategory, Default: 4, Bound: between(1, 6),
		Label: "Education Level Code",
		Help:  "Education level code (ordinal category).",
	},
	"Income": {
		Name: "Income", Kind: KindCategory, Default: 5, Bound: between(1, 8),
		Label: "Income Level Code",
		Help:  "Income level code (ordinal category).",
	},
}

func binaryField(name, label, help string) Field {
	return Field{Name: name, Kind: KindBinary, Default: 0, Bound: between(0, 1), Label: label, Help: help}
}

// DefaultColumns is the column order of the training dataset.
func DefaultColumns() []string {
	return []string{
		"HighBP",
		"HighChol",
		"CholCheck",
		"BMI",
		"Smoker",
		"Stroke",
		"HeartDiseaseorAttack",
		"PhysActivity",
		"Fruits",
		"Veggies",
		"HvyAlcoholConsump",
		"AnyHealthcare",
		"NoDocbcCost",
		"GenHlth",
		"MentHlth",
		"PhysHlth",
		"DiffWalk",
		"Sex",
		"Age",
		"Education",
		"Income",
	}
}

// CatalogField describes a column, using the catalog entry when one exists.
func CatalogField(name string) Field {
	if f, ok := catalog[name]; ok {
		return f
	}
	return Field{Name: name, Kind: KindFloat, Default: 0, Label: name}
}

// SchemaForColumns builds a schema that follows columns exactly.
func SchemaForColumns(target string, columns []string) (*Schema, error) {
	if target == "" {
		target = DefaultTarget
	}
	fields := make([]Field, len(columns))
	for i, c := range columns {
		fields[i] = CatalogField(c)
	}
	return NewSchema(target, fields)
}

// DefaultSchema is the schema of the BRFSS diabetes indicators dataset.
func DefaultSchema() *Schema {
	s, err := SchemaForColumns(DefaultTarget, DefaultColumns())
	if err != nil {
		panic(err)
	}
	return s
}
