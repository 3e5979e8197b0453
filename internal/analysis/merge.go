package analysis

// MergeReport describes stage-two entries that did not land on a problem area.
type MergeReport struct {
	// Orphaned lists ids proposed by stage two that stage one never produced.
	Orphaned []string
	// Duplicates lists ids that stage two proposed more than once; the first
	// occurrence wins.
	Duplicates []string
}

// Merge attaches stage-two excerpts to the stage-one problem areas by id.
//
// The stage-one list is authoritative: every area appears exactly once, in
// its original order, with Excerpts set to the first matching group's
// excerpts or to an empty slice. Groups whose id matches no area are reported
// rather than merged.
func Merge(areas []ProblemArea, groups []ExcerptGroup) ([]ProblemArea, MergeReport) {
	var report MergeReport

	known := make(map[string]struct{}, len(areas))
	for _, area := range areas {
		known[area.ID] = struct{}{}
	}

	byID := make(map[string][]Excerpt, len(groups))
	for _, group := range groups {
		if _, ok := known[group.ProblemAreaID]; !ok {
			report.Orphaned = append(report.Orphaned, group.ProblemAreaID)
			continue
		}
		if _, seen := byID[group.ProblemAreaID]; seen {
			report.Duplicates = append(report.Duplicates, group.ProblemAreaID)
			continue
		}
		byID[group.ProblemAreaID] = group.Excerpts
	}

	merged := make([]ProblemArea, len(areas))
	for i, area := range areas {
		merged[i] = ProblemArea{
			ID:          area.ID,
			Title:       area.Title,
			Description: area.Description,
			Excerpts:    cloneExcerpts(byID[area.ID]),
		}
	}
	return merged, report
}
