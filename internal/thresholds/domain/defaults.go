package thresholds

// Template seeds a new config for a sensor type.
type Template struct {
	Bounds    Bounds `yaml:"bounds"`
	Unit      string `yaml:"unit"`
	Precision int    `yaml:"precision"`
	Severity  string `yaml:"severity"`
}

var defaultTemplates = map[string]Template{
	TypeTemperature: {
		Bounds: Bounds{
			RangeMin: 15, RangeMax: 25,
			AlertLow: 18, AlertHigh: 22,
			CriticalLow: 15, CriticalHigh: 25,
		},
		Unit:      "°C",
		Precision: 2,
		Severity:  SeverityAlert,
	},
	TypeHumidity: {
		Bounds: Bounds{
			RangeMin: 30, RangeMax: 80,
			AlertLow: 35, AlertHigh: 75,
			CriticalLow: 30, CriticalHigh: 80,
		},
		Unit:      "%",
		Precision: 1,
		Severity:  SeverityAlert,
	},
	TypeWeight: {
		Bounds: Bounds{
			RangeMin: 0, RangeMax: 100,
			AlertLow: 5, AlertHigh: 95,
			CriticalLow: 0, CriticalHigh: 100,
		},
		Unit:      "kg",
		Precision: 2,
		Severity:  SeverityAlert,
	},
}

// genericTemplate covers sensor types without a dedicated template.
var genericTemplate = Template{
	Bounds: Bounds{
		RangeMin: 0, RangeMax: 100,
		AlertLow: 10, AlertHigh: 90,
		CriticalLow: 0, CriticalHigh: 100,
	},
	Precision: 2,
	Severity:  SeverityAlert,
}

// TemplateFor returns the default template for a sensor type, falling back to
// the generic 0-100 template for unknown types.
func TemplateFor(sensorType string) Template {
	if tpl, ok := defaultTemplates[sensorType]; ok {
		return tpl
	}
	return genericTemplate
}

// MergeTemplates overlays operator-provided templates on the built-in
// defaults. Overrides replace whole templates, not single bounds.
func MergeTemplates(overrides map[string]Template) map[string]Template {
	merged := make(map[string]Template, len(defaultTemplates)+len(overrides))
	for sensorType, tpl := range defaultTemplates {
		merged[sensorType] = tpl
	}
	for sensorType, tpl := range overrides {
		if tpl.Bounds.Validate() != nil {
			continue
		}
		merged[sensorType] = tpl
	}
	return merged
}
