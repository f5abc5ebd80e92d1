package core

// nextVersion computes the version of a group from the previous one and the
// highest severity in the group.
func nextVersion(current *SemanticVersion, highest Severity) SemanticVersion {
	if current == nil {
		return SemanticVersion{Build: BuildComputed}
	}
	switch highest {
	case SeverityMajor:
		return SemanticVersion{Major: current.Major + 1, Build: BuildComputed}
	case SeverityMinor:
		return SemanticVersion{Major: current.Major, Minor: current.Minor + 1, Build: BuildComputed}
	case SeverityPatch:
		return SemanticVersion{Major: current.Major, Minor: current.Minor, Patch: current.Patch + 1, Build: BuildComputed}
	}
	return *current
}

// assignVersions walks groups oldest first and stamps each transaction with
// the version of its group, regardless of the transaction's own severity.
func assignVersions(groups []*txGroup) {
	var current *SemanticVersion
	for _, g := range groups {
		highest := SeverityNone
		for _, tx := range g.transactions {
			highest = MaxSeverity(highest, tx.Severity)
		}

		v := nextVersion(current, highest)
		stamp := v.String()
		for i := range g.transactions {
			g.transactions[i].SemanticVersion = stamp
		}
		current = &v
	}
}
