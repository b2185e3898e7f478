// Package diff parses unified diff text into addressable line coordinates.
//
// The parser is deliberately permissive: it never fails on malformed input.
// Unparsable hunk headers are consumed without emitting a hunk, and content
// outside a recognized file section is ignored. Declared hunk lengths are not
// validated; only the start offsets are used for coordinate assignment, which
// tolerates non-standard diff producers.
package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// ChangeType classifies a single diff line.
type ChangeType int

const (
	Context ChangeType = iota
	Add
	Del
)

// FileStatus describes what happened to a file in the diff.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
)

// Change is one line of a hunk with its old/new coordinates.
// Add carries only NewLine, Del only OldLine, Context both; the unused side
// is zero.
type Change struct {
	Type    ChangeType
	Content string
	OldLine int
	NewLine int
}

// Hunk is a contiguous block of changes sharing one pair of start offsets.
type Hunk struct {
	OldStart int
	NewStart int
	Changes  []Change
}

// FileDiff is all hunks of a single file in the diff.
type FileDiff struct {
	Path   string
	Status FileStatus
	Hunks  []Hunk
}

var (
	hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)
	renameToRegex   = regexp.MustCompile(`^rename to (.+)`)
)

// Parse scans diffText and returns one FileDiff per file section.
// It never returns an error; unparsable content is skipped.
func Parse(diffText string) []FileDiff {
	var files []FileDiff
	var current *FileDiff

	lines := strings.Split(diffText, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "diff --git ") {
			if current != nil {
				files = append(files, *current)
			}
			current = &FileDiff{
				Path:   pathFromHeader(line),
				Status: StatusModified,
			}
			continue
		}

		if current == nil {
			continue
		}

		if strings.HasPrefix(line, "@@") {
			matches := hunkHeaderRegex.FindStringSubmatch(line)
			if matches == nil {
				// Malformed hunk header: consume the line, emit nothing.
				continue
			}
			oldStart, _ := strconv.Atoi(matches[1])
			newStart, _ := strconv.Atoi(matches[2])
			hunk := Hunk{OldStart: oldStart, NewStart: newStart}
			i = scanHunk(lines, i+1, &hunk) - 1
			current.Hunks = append(current.Hunks, hunk)
			continue
		}

		// Between the file header and the first hunk, look for status markers.
		if len(current.Hunks) == 0 {
			switch {
			case strings.HasPrefix(line, "new file mode"):
				current.Status = StatusAdded
			case strings.HasPrefix(line, "deleted file mode"):
				current.Status = StatusDeleted
			case strings.HasPrefix(line, "rename from"):
				current.Status = StatusRenamed
			case strings.HasPrefix(line, "rename to"):
				current.Status = StatusRenamed
				if m := renameToRegex.FindStringSubmatch(line); m != nil {
					current.Path = m[1]
				}
			}
		}
	}

	if current != nil {
		files = append(files, *current)
	}
	return files
}

// scanHunk consumes change lines starting at index start and returns the index
// of the first line that does not belong to the hunk.
func scanHunk(lines []string, start int, hunk *Hunk) int {
	oldLine := hunk.OldStart
	newLine := hunk.NewStart

	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" && i == len(lines)-1 {
			// Trailing newline artifact from strings.Split.
			break
		}
		switch {
		case strings.HasPrefix(line, "+"):
			hunk.Changes = append(hunk.Changes, Change{
				Type:    Add,
				Content: line[1:],
				NewLine: newLine,
			})
			newLine++
		case strings.HasPrefix(line, "-"):
			hunk.Changes = append(hunk.Changes, Change{
				Type:    Del,
				Content: line[1:],
				OldLine: oldLine,
			})
			oldLine++
		case strings.HasPrefix(line, " "):
			hunk.Changes = append(hunk.Changes, Change{
				Type:    Context,
				Content: line[1:],
				OldLine: oldLine,
				NewLine: newLine,
			})
			oldLine++
			newLine++
		default:
			// Anything else ends the hunk without being consumed as a change.
			return i
		}
	}
	return i
}

// pathFromHeader extracts the new-side path from a "diff --git a/x b/x" line.
func pathFromHeader(line string) string {
	rest := strings.TrimPrefix(line, "diff --git ")
	idx := strings.Index(rest, " b/")
	if idx < 0 {
		// Fall back to the last whitespace-separated field.
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return ""
		}
		return strings.TrimPrefix(fields[len(fields)-1], "b/")
	}
	return rest[idx+len(" b/"):]
}
