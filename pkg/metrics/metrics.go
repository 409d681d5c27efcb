package metrics

const namespace = "frysen"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
