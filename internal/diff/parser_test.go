package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/pkg/service.go b/pkg/service.go
index 1a2b3c4..5d6e7f8 100644
--- a/pkg/service.go
+++ b/pkg/service.go
@@ -10,3 +10,4 @@ func Setup() {
 	ctx := context.Background()
-	svc := New(ctx)
+	svc, err := New(ctx)
+	check(err)
`

func TestParseCoordinates(t *testing.T) {
	files := Parse(sampleDiff)
	require.Len(t, files, 1)
	require.Len(t, files[0].Hunks, 1)

	changes := files[0].Hunks[0].Changes
	require.Len(t, changes, 4)

	// context, del, add, add per the hunk body
	assert.Equal(t, Context, changes[0].Type)
	assert.Equal(t, 10, changes[0].OldLine)
	assert.Equal(t, 10, changes[0].NewLine)

	assert.Equal(t, Del, changes[1].Type)
	assert.Equal(t, 11, changes[1].OldLine)
	assert.Zero(t, changes[1].NewLine)

	assert.Equal(t, Add, changes[2].Type)
	assert.Equal(t, 11, changes[2].NewLine)
	assert.Zero(t, changes[2].OldLine)

	assert.Equal(t, Add, changes[3].Type)
	assert.Equal(t, 12, changes[3].NewLine)
}

func TestParseContextOffsetInvariant(t *testing.T) {
	input := `diff --git a/a.txt b/a.txt
@@ -5,4 +9,5 @@
 one
-two
+TWO
+extra
 three
`
	files := Parse(input)
	require.Len(t, files, 1)
	require.Len(t, files[0].Hunks, 1)

	h := files[0].Hunks[0]
	offset := h.NewStart - h.OldStart
	for _, c := range h.Changes {
		if c.Type == Context {
			assert.Equal(t, offset, c.NewLine-c.OldLine)
		}
	}
}

func TestParseFileStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FileStatus
	}{
		{
			name: "new file",
			input: `diff --git a/new.go b/new.go
new file mode 100644
@@ -0,0 +1,2 @@
+package main
+
`,
			want: StatusAdded,
		},
		{
			name: "deleted file",
			input: `diff --git a/old.go b/old.go
deleted file mode 100644
@@ -1,2 +0,0 @@
-package main
-
`,
			want: StatusDeleted,
		},
		{
			name: "renamed file",
			input: `diff --git a/before.go b/after.go
similarity index 95%
rename from before.go
rename to after.go
`,
			want: StatusRenamed,
		},
		{
			name: "plain modification",
			input: `diff --git a/mod.go b/mod.go
index abc..def 100644
@@ -1 +1 @@
-a
+b
`,
			want: StatusModified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := Parse(tt.input)
			require.Len(t, files, 1)
			assert.Equal(t, tt.want, files[0].Status)
		})
	}
}

func TestParseRenameUsesNewPath(t *testing.T) {
	input := `diff --git a/before.go b/after.go
rename from before.go
rename to after.go
`
	files := Parse(input)
	require.Len(t, files, 1)
	assert.Equal(t, "after.go", files[0].Path)
}

func TestParseMalformedHunkHeaderSkipped(t *testing.T) {
	input := `diff --git a/x.go b/x.go
@@ garbage header @@
+this line belongs to no hunk
@@ -1,1 +1,1 @@
-a
+b
`
	files := Parse(input)
	require.Len(t, files, 1)
	// Only the well-formed hunk survives.
	require.Len(t, files[0].Hunks, 1)
	assert.Equal(t, 1, files[0].Hunks[0].OldStart)
}

func TestParseIgnoresContentOutsideFileSections(t *testing.T) {
	input := "some preamble\nnot a diff at all\n"
	assert.Empty(t, Parse(input))
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"diff --git",
		"diff --git a/x b/x\n@@ -x,y +a,b @@\n+++---",
		"@@ -1 +1 @@\n+orphan hunk with no file",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) })
	}
}

func TestParseMultipleFiles(t *testing.T) {
	input := `diff --git a/one.go b/one.go
@@ -1 +1 @@
-a
+b
diff --git a/two.go b/two.go
@@ -3,2 +3,3 @@
 keep
+add
 keep2
`
	files := Parse(input)
	require.Len(t, files, 2)
	assert.Equal(t, "one.go", files[0].Path)
	assert.Equal(t, "two.go", files[1].Path)
	require.Len(t, files[1].Hunks, 1)
	assert.Equal(t, 3, files[1].Hunks[0].NewStart)
}

func TestTargetLines(t *testing.T) {
	files := Parse(sampleDiff)
	require.Len(t, files, 1)

	lines := files[0].TargetLines()
	// context line 10, adds at 11 and 12
	assert.Equal(t, map[int]struct{}{10: {}, 11: {}, 12: {}}, lines)
}

func TestTargetLinesByPath(t *testing.T) {
	files := Parse(sampleDiff)

	newSide := TargetLinesByPath(files)
	oldSide := OldTargetLinesByPath(files)

	assert.Equal(t, map[int]struct{}{10: {}, 11: {}, 12: {}}, newSide["pkg/service.go"])
	// context line 10 and the deletion at 11
	assert.Equal(t, map[int]struct{}{10: {}, 11: {}}, oldSide["pkg/service.go"])
}

func TestStats(t *testing.T) {
	files := Parse(sampleDiff)
	require.Len(t, files, 1)

	s := files[0].Stats()
	assert.Equal(t, 2, s.Additions)
	assert.Equal(t, 1, s.Deletions)
}
