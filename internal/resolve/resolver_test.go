package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := New([]string{
		"src/app.ts",
		"src/util.ts",
		"src/lib/index.js",
		"src/lib/deep/x.tsx",
		"shared/config.mjs",
		"src/util",
	})

	tests := []struct {
		name      string
		from      string
		reference string
		want      string
		ok        bool
	}{
		{name: "exact match wins over suffixes", from: "src/app.ts", reference: "./util", want: "src/util", ok: true},
		{name: "extension variant", from: "src/app.ts", reference: "./util.ts", want: "src/util.ts", ok: true},
		{name: "index variant", from: "src/app.ts", reference: "./lib", want: "src/lib/index.js", ok: true},
		{name: "parent directory", from: "src/lib/deep/x.tsx", reference: "../../app", want: "src/app.ts", ok: true},
		{name: "quoted reference", from: "src/app.ts", reference: `"./lib/deep/x"`, want: "src/lib/deep/x.tsx", ok: true},
		{name: "bare falls back to root", from: "src/app.ts", reference: "shared/config", want: "shared/config.mjs", ok: true},
		{name: "root relative", from: "src/lib/deep/x.tsx", reference: "/shared/config", want: "shared/config.mjs", ok: true},
		{name: "package import is unresolved", from: "src/app.ts", reference: "react", ok: false},
		{name: "escaping the root is unresolved", from: "src/app.ts", reference: "../../outside", ok: false},
		{name: "blank is unresolved", from: "src/app.ts", reference: "  ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.from, tt.reference)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWithCustomSuffixes(t *testing.T) {
	r := New([]string{"pkg/a.py", "pkg/b/__init__.py"}, WithSuffixes([]string{".py", "/__init__.py"}))

	got, ok := r.Resolve("pkg/main.py", "./a")
	assert.True(t, ok)
	assert.Equal(t, "pkg/a.py", got)

	got, ok = r.Resolve("pkg/main.py", "./b")
	assert.True(t, ok)
	assert.Equal(t, "pkg/b/__init__.py", got)

	_, ok = r.Resolve("pkg/main.py", "./a.py")
	assert.False(t, ok, "exact candidate is not in the custom list")
}

func TestResolveIsPure(t *testing.T) {
	r := New([]string{"a.ts", "b.ts"})
	for i := 0; i < 3; i++ {
		got, ok := r.Resolve("a.ts", "./b")
		assert.True(t, ok)
		assert.Equal(t, "b.ts", got)
	}
	_, ok := r.Resolve("a.ts", "./c")
	assert.False(t, ok)
}
