package defect

// Severity is the qualitative impact class of a defect.
type Severity string

// Priority is the repair-triage priority derived from severity.
type Priority string

const (
	SeverityLight   Severity = "light"
	SeverityMedium  Severity = "medium"
	SeveritySevere  Severity = "severe"
	SeverityUnknown Severity = "unknown"

	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Severity thresholds over physical area (m²) and circularity.
const (
	severityLightAreaMax      = 0.05
	severityLightCircularity  = 0.7
	severitySevereAreaMin     = 0.15
	severitySevereCircularity = 0.4
)

// SeverityClassification triages a defect for repair.
type SeverityClassification struct {
	Severity     Severity `json:"severity"`
	Priority     Priority `json:"priority"`
	RepairNeeded bool     `json:"repair_needed"`
}

// ClassifySeverity maps physical area and shape regularity to a severity
// class. Without physical area (no ranging data) the result degrades to
// unknown severity with a conservative repair-required default.
func ClassifySeverity(phys *PhysicalDimensions, circularity float64) SeverityClassification {
	if phys == nil {
		return SeverityClassification{
			Severity:     SeverityUnknown,
			Priority:     PriorityMedium,
			RepairNeeded: true,
		}
	}

	area := phys.AreaM2
	switch {
	case area < severityLightAreaMax && circularity > severityLightCircularity:
		return SeverityClassification{Severity: SeverityLight, Priority: PriorityLow, RepairNeeded: false}
	case area > severitySevereAreaMin || circularity < severitySevereCircularity:
		return SeverityClassification{Severity: SeveritySevere, Priority: PriorityHigh, RepairNeeded: true}
	default:
		return SeverityClassification{Severity: SeverityMedium, Priority: PriorityMedium, RepairNeeded: true}
	}
}
