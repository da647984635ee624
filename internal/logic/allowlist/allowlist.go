package allowlist

// AllowList is the set of cameras permitted to take snapshots.
// An empty list permits every camera. Matching is exact and case-sensitive.
type AllowList struct {
	names map[string]struct{}
	order []string
}

// New builds an allow-list from camera names. Duplicates are ignored.
func New(names []string) AllowList {
	al := AllowList{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, ok := al.names[n]; ok {
			continue
		}
		al.names[n] = struct{}{}
		al.order = append(al.order, n)
	}
	return al
}

// Empty reports whether no filtering applies.
func (a AllowList) Empty() bool { return len(a.names) == 0 }

// Names returns the configured cameras in configuration order.
func (a AllowList) Names() []string {
	return append([]string(nil), a.order...)
}

// ShouldSkip reports whether camera must be excluded from snapshotting.
func (a AllowList) ShouldSkip(camera string) bool {
	if a.Empty() {
		return false
	}
	_, ok := a.names[camera]
	return !ok
}
