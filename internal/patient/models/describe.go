package models

// Human-readable labels for coded fields, used by reports and exports.

var chestPainLabels = map[int]string{
	0: "Typical Angina",
	1: "Atypical Angina",
	2: "Non-anginal Pain",
	3: "Asymptomatic",
}

var restECGLabels = map[int]string{
	0: "Normal",
	1: "ST-T Wave Abnormality",
	2: "Left Ventricular Hypertrophy",
}

var slopeLabels = map[int]string{
	0: "Upsloping",
	1: "Flat",
	2: "Downsloping",
}

var thalLabels = map[int]string{
	0: "Normal",
	1: "Fixed Defect",
	2: "Reversible Defect",
	3: "Not described",
}

func ChestPainText(cp int) string { return lookup(chestPainLabels, cp) }
func RestECGText(v int) string    { return lookup(restECGLabels, v) }
func SlopeText(v int) string      { return lookup(slopeLabels, v) }
func ThalText(v int) string       { return lookup(thalLabels, v) }

func SexText(sex int) string {
	if sex == 1 {
		return "Male"
	}
	return "Female"
}

func YesNo(v int) string {
	if v == 1 {
		return "Yes"
	}
	return "No"
}

func lookup(m map[int]string, k int) string {
	if s, ok := m[k]; ok {
		return s
	}
	return "Unknown"
}
