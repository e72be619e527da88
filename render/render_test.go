// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestNew(t *testing.T) {
	t.Run("will discover templates recursively", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"index.html":       `<h1>{{.title}}</h1>`,
			"pages/about.html": `<p>about</p>`,
			"notes.txt":        `not a template`,
		})

		r, err := New(dir)
		require.NoError(t, err)

		require.NoError(t, r.Insert("title", "X"))
		out, err := r.Render("index")
		require.NoError(t, err)
		assert.Contains(t, out, "X")

		out, err = r.Render("pages/about")
		require.NoError(t, err)
		assert.Contains(t, out, "about")

		_, err = r.Render("notes")
		assert.Error(t, err)
	})

	t.Run("will return a TemplateError", func(t *testing.T) {
		t.Run("if any template fails to parse", func(t *testing.T) {
			dir := writeTemplates(t, map[string]string{
				"good.html":   `ok`,
				"broken.html": `{{`,
			})

			_, err := New(dir)
			require.Error(t, err)

			var terr *TemplateError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, "broken", terr.Name)
		})

		t.Run("if the directory does not exist", func(t *testing.T) {
			_, err := New(filepath.Join(t.TempDir(), "missing"))

			var terr *TemplateError
			require.ErrorAs(t, err, &terr)
		})
	})

	t.Run("will honor a custom extension", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"index.tmpl": `hello`,
		})

		r, err := New(dir, WithExtension(".tmpl"))
		require.NoError(t, err)

		out, err := r.Render("index")
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
	})
}

func TestRenderer_Render(t *testing.T) {
	t.Run("will return a TemplateError", func(t *testing.T) {
		t.Run("if the template name is unknown", func(t *testing.T) {
			dir := writeTemplates(t, map[string]string{"index.html": `ok`})
			r, err := New(dir)
			require.NoError(t, err)

			_, err = r.Render("missing_template")
			var terr *TemplateError
			require.ErrorAs(t, err, &terr)
			assert.ErrorIs(t, err, ErrTemplateNotFound)
		})
	})

	t.Run("will return a RenderError", func(t *testing.T) {
		t.Run("if a referenced key was never inserted", func(t *testing.T) {
			dir := writeTemplates(t, map[string]string{"index.html": `{{.title}}`})
			r, err := New(dir)
			require.NoError(t, err)

			_, err = r.Render("index")
			var rerr *RenderError
			require.ErrorAs(t, err, &rerr)

			// A failed render does not invalidate the renderer.
			require.NoError(t, r.Insert("title", "X"))
			out, err := r.Render("index")
			require.NoError(t, err)
			assert.Equal(t, "X", out)
		})
	})

	t.Run("will render inserted values of any serializable type", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"profile.html": `{{.user.name}} has {{.count}} orders`,
		})
		r, err := New(dir)
		require.NoError(t, err)

		type user struct {
			Name string `json:"name"`
		}
		require.NoError(t, r.Insert("user", user{Name: "ada"}))
		require.NoError(t, r.Insert("count", 3))

		out, err := r.Render("profile")
		require.NoError(t, err)
		assert.Equal(t, "ada has 3 orders", out)
	})
}

func TestRenderer_Insert(t *testing.T) {
	t.Run("will replace prior values", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `{{.title}}`})
		r, err := New(dir)
		require.NoError(t, err)

		require.NoError(t, r.Insert("title", "first"))
		require.NoError(t, r.Insert("title", "second"))

		out, err := r.Render("index")
		require.NoError(t, err)
		assert.Equal(t, "second", out)
	})

	t.Run("will return a ContextUpdateError", func(t *testing.T) {
		t.Run("if the value cannot be serialized", func(t *testing.T) {
			dir := writeTemplates(t, map[string]string{"index.html": `ok`})
			r, err := New(dir)
			require.NoError(t, err)

			err = r.Insert("ch", make(chan int))
			var cerr *ContextUpdateError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "ch", cerr.Key)
		})
	})

	t.Run("will not lose updates under concurrent inserts", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `ok`})
		r, err := New(dir)
		require.NoError(t, err)

		const n = 64
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, r.Insert(fmt.Sprintf("key-%d", i), i))
			}(i)
		}
		wg.Wait()

		snapshot := r.context.snapshot()
		require.Len(t, snapshot, n)
		for i := 0; i < n; i++ {
			assert.Contains(t, snapshot, fmt.Sprintf("key-%d", i))
		}
	})
}

func TestRenderer_DigestAsset(t *testing.T) {
	t.Run("will return the same version for the life of the renderer", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"index.html": `{{digest_asset "app.js"}}`,
		})
		r, err := New(dir)
		require.NoError(t, err)

		first, err := r.Render("index")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^/assets/app\.js\?v=\d+$`), first)

		for i := 0; i < 3; i++ {
			out, err := r.Render("index")
			require.NoError(t, err)
			assert.Equal(t, first, out)
		}

		assert.Equal(t, first, r.DigestAsset("app.js"))
	})

	t.Run("will honor a custom asset prefix", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `ok`})
		r, err := New(dir, WithAssetPrefix("/static/"))
		require.NoError(t, err)

		assert.Regexp(t, regexp.MustCompile(`^/static/app\.js\?v=\d+$`), r.DigestAsset("app.js"))
	})
}

func TestRenderer_Reload(t *testing.T) {
	t.Run("will pick up changed templates", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `v1`})
		r, err := New(dir)
		require.NoError(t, err)

		out, err := r.Render("index")
		require.NoError(t, err)
		assert.Equal(t, "v1", out)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`v2`), 0o644))
		require.NoError(t, r.Reload())

		out, err = r.Render("index")
		require.NoError(t, err)
		assert.Equal(t, "v2", out)
	})

	t.Run("will keep the previous set if recompiling fails", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `v1`})
		r, err := New(dir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{`), 0o644))
		require.Error(t, r.Reload())

		out, err := r.Render("index")
		require.NoError(t, err)
		assert.Equal(t, "v1", out)
	})

	t.Run("will not refresh the asset cache key", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `v1`})
		r, err := New(dir)
		require.NoError(t, err)

		before := r.DigestAsset("app.js")
		require.NoError(t, r.Reload())
		assert.Equal(t, before, r.DigestAsset("app.js"))
	})
}

func TestRenderer_Watch(t *testing.T) {
	t.Run("will recompile when a template changes on disk", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `v1`})
		r, err := New(dir, WithReload())
		require.NoError(t, err)
		defer r.Close()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`v2`), 0o644))

		assert.Eventually(t, func() bool {
			out, err := r.Render("index")
			return err == nil && out == "v2"
		}, 3*time.Second, 25*time.Millisecond)
	})

	t.Run("will stop watching on Close", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"index.html": `v1`})
		r, err := New(dir, WithReload())
		require.NoError(t, err)

		require.NoError(t, r.Close())
		require.NoError(t, r.Close())
	})
}
