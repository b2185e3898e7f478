package diff

// Stats holds addition and deletion counts for a file.
type Stats struct {
	Additions int
	Deletions int
}

// Stats counts added and deleted lines across all hunks of the file.
func (f *FileDiff) Stats() Stats {
	var s Stats
	for _, h := range f.Hunks {
		for _, c := range h.Changes {
			switch c.Type {
			case Add:
				s.Additions++
			case Del:
				s.Deletions++
			}
		}
	}
	return s
}

// TargetLines returns the new-side line numbers that can receive a review
// comment: every line present in the new version of the file within the diff.
func (f *FileDiff) TargetLines() map[int]struct{} {
	lines := make(map[int]struct{})
	for _, h := range f.Hunks {
		for _, c := range h.Changes {
			if c.Type == Add || c.Type == Context {
				lines[c.NewLine] = struct{}{}
			}
		}
	}
	return lines
}

// OldTargetLines returns the old-side line numbers addressable by a comment:
// every line present in the old version of the file within the diff.
func (f *FileDiff) OldTargetLines() map[int]struct{} {
	lines := make(map[int]struct{})
	for _, h := range f.Hunks {
		for _, c := range h.Changes {
			if c.Type == Del || c.Type == Context {
				lines[c.OldLine] = struct{}{}
			}
		}
	}
	return lines
}

// TargetLinesByPath builds the new-side commentable-line index for a whole diff.
func TargetLinesByPath(files []FileDiff) map[string]map[int]struct{} {
	byPath := make(map[string]map[int]struct{}, len(files))
	for i := range files {
		byPath[files[i].Path] = files[i].TargetLines()
	}
	return byPath
}

// OldTargetLinesByPath builds the old-side commentable-line index for a whole diff.
func OldTargetLinesByPath(files []FileDiff) map[string]map[int]struct{} {
	byPath := make(map[string]map[int]struct{}, len(files))
	for i := range files {
		byPath[files[i].Path] = files[i].OldTargetLines()
	}
	return byPath
}
