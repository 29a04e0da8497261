package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flowcanvas/internal/config"
)

const storyYAML = `id: story
name: Lighthouse
viewport:
  x: 0
  y: 0
  zoom: 1
nodes:
  - id: prompt
    type: text_input
    x: 0
    y: 0
    data:
      label: Idea
      value: A lighthouse at dusk
  - id: img
    type: image_gen
    x: 400
    y: 0
    data:
      label: Still
edges:
  - id: e1
    source: prompt
    source_handle: output
    target: img
    target_handle: prompt
`

// execute runs the CLI in a clean environment and returns its output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("FLOWCANVAS_GENERATION_SIMULATE_DELAY", "0s")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeStory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.yaml")
	if err := os.WriteFile(path, []byte(storyYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWorkflow(t *testing.T) {
	story := writeStory(t)
	out, err := execute(t, "run", story)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Lighthouse", "level 1: prompt", "level 2: img", "done", "2 nodes done"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunSingleNodeWritesResult(t *testing.T) {
	story := writeStory(t)
	result := filepath.Join(filepath.Dir(story), "result.json")

	out, err := execute(t, "run", story, "--node", "img", "--out", result)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	data, err := os.ReadFile(result)
	if err != nil {
		t.Fatalf("expected result file: %v", err)
	}
	if !strings.Contains(string(data), "https://sim.flowcanvas.local/image/") {
		t.Errorf("expected generated image in result, got %s", data)
	}
}

func TestRunReportsFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lonely.yaml")
	doc := "name: Lonely\nnodes:\n  - id: img\n    type: image_gen\n    data:\n      label: Still\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", path)
	if err == nil {
		t.Fatalf("expected failure, got:\n%s", out)
	}
	if !strings.Contains(out, "Please connect a text prompt") {
		t.Errorf("expected the node error in the report, got:\n%s", out)
	}
}

func TestRunRejectsOutOverWatchedFile(t *testing.T) {
	story := writeStory(t)
	if _, err := execute(t, "run", story, "--watch", "--out", story); err == nil {
		t.Error("expected error when --out is the watched file")
	}
}

func TestConvert(t *testing.T) {
	story := writeStory(t)
	dst := filepath.Join(filepath.Dir(story), "story.toml")

	out, err := execute(t, "convert", story, dst)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if !strings.Contains(out, "2 nodes, 1 edges") {
		t.Errorf("unexpected output %q", out)
	}

	back := filepath.Join(filepath.Dir(story), "back.json")
	if _, err := execute(t, "convert", dst, back); err != nil {
		t.Fatalf("convert back failed: %v", err)
	}
	p, err := readProject(back)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Lighthouse" || len(p.Nodes) != 2 || len(p.Edges) != 1 {
		t.Errorf("unexpected round trip %+v", p)
	}

	if _, err := execute(t, "convert", story, story); err == nil {
		t.Error("expected error converting a file onto itself")
	}
	if _, err := execute(t, "convert", story, filepath.Join(filepath.Dir(story), "story.xml")); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestTypes(t *testing.T) {
	out, err := execute(t, "types")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"TYPE", "text_input", "image_gen", "prompt:text"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowcanvas.yaml")

	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := execute(t, "config", "init", path); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, err := execute(t, "config", "init", path, "--force"); err != nil {
		t.Errorf("expected --force to overwrite: %v", err)
	}

	out, err := execute(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, path) || !strings.Contains(out, "3000") {
		t.Errorf("unexpected config output:\n%s", out)
	}
}
