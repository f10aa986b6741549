package provisioner

// MatchTeams selects the successful team outcomes that belong to repo, using the
// name invariant: a team belongs to repo only when its name is exactly one of the
// five names TeamName(repo, level) would produce. The result follows
// PermissionLevels order, whatever order the input is in.
func MatchTeams(repo string, teams []Outcome[TeamAssignment]) []TeamAssignment {
	byLevel := make(map[Permission]TeamAssignment, len(PermissionLevels))
	for _, o := range teams {
		if !o.Success {
			continue
		}
		p, ok := TeamPermission(repo, o.Data.Name)
		if !ok || p != o.Data.Permission {
			continue
		}
		byLevel[p] = o.Data
	}
	matched := make([]TeamAssignment, 0, len(byLevel))
	for _, p := range PermissionLevels {
		if t, ok := byLevel[p]; ok {
			matched = append(matched, t)
		}
	}
	return matched
}
