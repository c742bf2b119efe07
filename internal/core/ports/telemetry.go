package ports

// Telemetry receives anomalies worth surfacing to the operators. Reporting
// is fire-and-forget and must never block the caller.
type Telemetry interface {
	ReportAnomaly(message string, fields map[string]interface{})
}
