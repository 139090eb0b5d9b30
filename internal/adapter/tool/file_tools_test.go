package tool

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"content-crew/internal/security"
)

func TestWriteFileWritesContent(t *testing.T) {
	dir := t.TempDir()
	tl := NewWriteFileTool(NewLocalFS(nil), nopLogger())
	path := filepath.Join(dir, "note.md")

	params, _ := json.Marshal(writeFileParams{Path: path, Content: "héllo wörld"})
	res, err := tl.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || res.Content != "File written successfully to "+path {
		t.Errorf("result = %+v", res)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "héllo wörld" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	tl := NewWriteFileTool(NewLocalFS(nil), nopLogger())
	path := filepath.Join(t.TempDir(), "missing", "note.md")

	params, _ := json.Marshal(writeFileParams{Path: path, Content: "x"})
	res, err := tl.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("write_file must not return Go errors: %v", err)
	}
	if !res.IsError || !strings.HasPrefix(res.Content, "Error writing file: ") {
		t.Errorf("result = %+v", res)
	}
}

func TestWriteFileSandboxed(t *testing.T) {
	sb, err := security.NewSandbox(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tl := NewWriteFileTool(NewLocalFS(sb), nopLogger())

	res, _ := tl.Execute(context.Background(), json.RawMessage(`{"path":"ok.md","content":"fine"}`))
	if res.IsError {
		t.Fatalf("relative path inside sandbox should work: %+v", res)
	}
	if data, _ := os.ReadFile(filepath.Join(sb.Root(), "ok.md")); string(data) != "fine" {
		t.Errorf("content = %q", data)
	}

	res, _ = tl.Execute(context.Background(), json.RawMessage(`{"path":"../escape.md","content":"x"}`))
	if !res.IsError || !strings.Contains(res.Content, "outside sandbox") {
		t.Errorf("escape should fail: %+v", res)
	}
}

func TestCreatePostWithImage(t *testing.T) {
	fs := newMemFS()
	tl := NewCreatePostTool(fs, nopLogger())

	params, _ := json.Marshal(createPostParams{
		PostContent:   "This is my post content",
		ImageURL:      "https://example.com/image.png",
		ImageFilePath: "./images/post.png",
		OutputPath:    "./posts/test-post.md",
	})
	res, err := tl.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}

	o := decodeOutcome(t, res)
	if !o.Success || o.FilePath != "./posts/test-post.md" || o.Message != "Post saved to ./posts/test-post.md" {
		t.Errorf("outcome = %+v", o)
	}
	if len(fs.dirs) != 1 || fs.dirs[0] != "posts" {
		t.Errorf("dirs = %v", fs.dirs)
	}

	want := "# Post\n\nThis is my post content\n\n" +
		"---\n\n## Image Details\n\n" +
		"**Local File:** ./images/post.png\n\n" +
		"![Generated Image](./images/post.png)\n\n" +
		"**Original URL:** https://example.com/image.png\n\n"
	if got := string(fs.files["./posts/test-post.md"]); got != want {
		t.Errorf("content =\n%q\nwant\n%q", got, want)
	}
}

func TestCreatePostWithoutImage(t *testing.T) {
	fs := newMemFS()
	tl := NewCreatePostTool(fs, nopLogger())

	params, _ := json.Marshal(createPostParams{
		PostContent: "Just text content",
		ImageURL:    "",
		OutputPath:  "./posts/text-only.md",
	})
	res, _ := tl.Execute(context.Background(), params)
	if o := decodeOutcome(t, res); !o.Success {
		t.Fatalf("outcome = %+v", o)
	}

	content := string(fs.files["./posts/text-only.md"])
	if content != "# Post\n\nJust text content\n\n" {
		t.Errorf("content = %q", content)
	}
	if strings.Contains(content, "Image Details") {
		t.Error("Image Details must be omitted when no image is given")
	}
}

func TestRenderPostOnlyURL(t *testing.T) {
	got := RenderPost("c", "https://x/y.png", " ")
	if strings.Contains(got, "Local File") || !strings.Contains(got, "**Original URL:** https://x/y.png") {
		t.Errorf("got %q", got)
	}
}

func TestCreatePostFilesystemError(t *testing.T) {
	fs := newMemFS()
	fs.mkdirErr = errors.New("No permission")
	tl := NewCreatePostTool(fs, nopLogger())

	res, err := tl.Execute(context.Background(), json.RawMessage(
		`{"postContent":"Content","imageUrl":"","imageFilePath":"","outputPath":"./posts/test.md"}`))
	if err != nil {
		t.Fatalf("create_post_file must not return Go errors: %v", err)
	}
	o := decodeOutcome(t, res)
	if o.Success || o.Error != "No permission" {
		t.Errorf("outcome = %+v", o)
	}
}

func TestCreatePostLocalBackend(t *testing.T) {
	dir := t.TempDir()
	tl := NewCreatePostTool(NewLocalFS(nil), nopLogger())
	out := filepath.Join(dir, "posts", "nested", "post.md")

	params, _ := json.Marshal(createPostParams{PostContent: "body", OutputPath: out})
	res, _ := tl.Execute(context.Background(), params)
	if o := decodeOutcome(t, res); !o.Success {
		t.Fatalf("outcome = %+v", o)
	}
	if data, err := os.ReadFile(out); err != nil || !strings.Contains(string(data), "body") {
		t.Errorf("file = %q, %v", data, err)
	}
}

func TestNewFilesystemBackend(t *testing.T) {
	sb, err := security.NewSandbox(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range []string{"", "local"} {
		fs, err := NewFilesystemBackend(kind, sb)
		if err != nil {
			t.Fatalf("%q: %v", kind, err)
		}
		if fs.Name() != "local" {
			t.Errorf("%q: name = %q", kind, fs.Name())
		}
	}
	if _, err := NewFilesystemBackend("s3", sb); err == nil {
		t.Error("unknown backend accepted")
	}
}
