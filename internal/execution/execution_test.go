package execution

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/generation"
	"flowcanvas/internal/registry"
)

func newTestRunner(t *testing.T) (*Runner, *generation.Simulator) {
	t.Helper()
	sim := generation.NewSimulator(0)
	return NewRunner(registry.New(sim)), sim
}

func addNode(t *testing.T, g *domain.Graph, id string, typ domain.NodeType, label string) *domain.Node {
	t.Helper()
	n := domain.NewNode(typ, 0, 0)
	n.ID = id
	n.Data.Label = label
	if err := g.AddNode(n); err != nil {
		t.Fatalf("add node %s: %v", id, err)
	}
	return n
}

func connect(t *testing.T, g *domain.Graph, ports domain.PortCatalog, src, sh, tgt, th string) {
	t.Helper()
	if _, err := g.Connect(ports, src, sh, tgt, th); err != nil {
		t.Fatalf("connect %s -> %s: %v", src, tgt, err)
	}
}

func TestBuildPromptFromUpstreamText(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	text := addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")
	text.Data.Value = "A cat"
	addNode(t, g, "i1", domain.NodeTypeImageGen, "Visual Generator")
	connect(t, g, r.Registry, "t1", "output", "i1", "prompt")

	ec, err := r.Builder.Build(g, "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ec.Input("prompt"); got != "A cat" {
		t.Errorf("expected prompt %q, got %q", "A cat", got)
	}
	if got := ec.InputLabels["prompt"]; got != "Prompt" {
		t.Errorf("expected input label Prompt, got %q", got)
	}
	if len(ec.References) != 0 {
		t.Errorf("expected no references, got %v", ec.References)
	}
}

func TestBuildPrefersOutputResult(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	src := addNode(t, g, "a", domain.NodeTypeAIRefine, "Refiner")
	src.Data.Value = "draft"
	src.Data.OutputResult = "refined"
	addNode(t, g, "b", domain.NodeTypeAudioGen, "Voice")
	connect(t, g, r.Registry, "a", "refined", "b", "text")

	ec, err := r.Builder.Build(g, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ec.Input("text"); got != "refined" {
		t.Errorf("expected refined, got %q", got)
	}
}

func TestBuildFallsBackToOutputList(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	src := addNode(t, g, "a", domain.NodeTypeScriptAgent, "Writer")
	src.Data.OutputList = []string{"Scene 1", "Scene 2"}
	addNode(t, g, "b", domain.NodeTypeAIRefine, "Refiner")
	connect(t, g, r.Registry, "a", "script", "b", "input")

	ec, err := r.Builder.Build(g, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Scene 1", "Scene 2"}, ec.Inputs["input"].Strings()); diff != "" {
		t.Errorf("input mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFirstEdgeWinsForSinglePorts(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	first := addNode(t, g, "t1", domain.NodeTypeTextInput, "First")
	first.Data.Value = "one"
	second := addNode(t, g, "t2", domain.NodeTypeTextInput, "Second")
	second.Data.Value = "two"
	addNode(t, g, "i1", domain.NodeTypeImageGen, "Gen")

	// Imported graphs may carry duplicates that Connect would reject
	g.Edges = append(g.Edges,
		domain.NewEdge("t1", "output", "i1", "prompt"),
		domain.NewEdge("t2", "output", "i1", "prompt"),
	)

	for i := 0; i < 3; i++ {
		ec, err := r.Builder.Build(g, "i1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ec.Input("prompt"); got != "one" {
			t.Fatalf("expected first edge value %q, got %q", "one", got)
		}
	}
}

func TestBuildSkipsEmptyAndDanglingSources(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	addNode(t, g, "empty", domain.NodeTypeTextInput, "Empty")
	full := addNode(t, g, "full", domain.NodeTypeTextInput, "Full")
	full.Data.Value = "kept"
	addNode(t, g, "i1", domain.NodeTypeImageGen, "Gen")
	g.Edges = append(g.Edges,
		domain.NewEdge("ghost", "output", "i1", "prompt"),
		domain.NewEdge("empty", "output", "i1", "prompt"),
		domain.NewEdge("full", "output", "i1", "prompt"),
	)

	ec, err := r.Builder.Build(g, "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ec.Input("prompt"); got != "kept" {
		t.Errorf("expected kept, got %q", got)
	}
	if got := ec.InputLabels["prompt"]; got != "Full" {
		t.Errorf("expected label Full, got %q", got)
	}
}

func TestBuildEmptyHandleMeansFirstInput(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	text := addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")
	text.Data.Value = "hello"
	addNode(t, g, "a", domain.NodeTypeAudioGen, "Voice")
	g.Edges = append(g.Edges, domain.NewEdge("t1", "", "a", ""))

	ec, err := r.Builder.Build(g, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ec.Input("text"); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestBuildMultiplePortOrdersByClipOrder(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	for _, id := range []string{"v1", "v2", "v3", "v4"} {
		n := addNode(t, g, id, domain.NodeTypeVideoGen, id)
		n.Data.OutputResult = "https://x/" + id + ".mp4"
	}
	mix := addNode(t, g, "mix", domain.NodeTypeVideoComposer, "Mix")
	for _, id := range []string{"v1", "v2", "v3", "v4"} {
		connect(t, g, r.Registry, id, "video", "mix", "clips")
	}

	tests := []struct {
		name      string
		order     []any
		want      []string
		wantLabel string
	}{
		{
			name:      "edge order without clipOrder",
			want:      []string{"https://x/v1.mp4", "https://x/v2.mp4", "https://x/v3.mp4", "https://x/v4.mp4"},
			wantLabel: "v1",
		},
		{
			name:      "listed sources first, unlisted keep edge order",
			order:     []any{"v3", "v1", "gone"},
			want:      []string{"https://x/v3.mp4", "https://x/v1.mp4", "https://x/v2.mp4", "https://x/v4.mp4"},
			wantLabel: "v3",
		},
		{
			name:      "full order",
			order:     []any{"v4", "v3", "v2", "v1"},
			want:      []string{"https://x/v4.mp4", "https://x/v3.mp4", "https://x/v2.mp4", "https://x/v1.mp4"},
			wantLabel: "v4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mix.Data.Settings = domain.Settings{}
			if tt.order != nil {
				mix.Data.Settings = mix.Data.Settings.Set("clipOrder", tt.order)
			}

			ec, err := r.Builder.Build(g, "mix")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, ec.Inputs["clips"].Strings()); diff != "" {
				t.Errorf("clips mismatch (-want +got):\n%s", diff)
			}
			if got := ec.InputLabels["clips"]; got != tt.wantLabel {
				t.Errorf("expected label %q, got %q", tt.wantLabel, got)
			}
		})
	}
}

func TestBuildLooksThroughPreview(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	img := addNode(t, g, "img", domain.NodeTypeImageInput, "Hero")
	img.Data.Value = "data:image/png;base64,AAAA"
	addNode(t, g, "p1", domain.NodeTypePreview, "Preview")
	addNode(t, g, "p2", domain.NodeTypePreview, "Preview 2")
	addNode(t, g, "gen", domain.NodeTypeImageGen, "Gen")
	connect(t, g, r.Registry, "img", "output", "p1", "input")
	connect(t, g, r.Registry, "p1", "output", "p2", "input")
	connect(t, g, r.Registry, "p2", "output", "gen", "image_ref")

	ec, err := r.Builder.Build(g, "gen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ec.Input("image_ref"); got != img.Data.Value {
		t.Errorf("expected upstream image, got %q", got)
	}
	if got := ec.InputLabels["image_ref"]; got != "Hero" {
		t.Errorf("expected producer label Hero, got %q", got)
	}
}

func TestBuildPreviewLoopTerminates(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	a := addNode(t, g, "p1", domain.NodeTypePreview, "A")
	a.Data.OutputResult = "stale"
	addNode(t, g, "p2", domain.NodeTypePreview, "B")
	g.Edges = append(g.Edges,
		domain.NewEdge("p1", "output", "p2", "input"),
		domain.NewEdge("p2", "output", "p1", "input"),
	)

	ec, err := r.Builder.Build(g, "p2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ec.Input("input"); got != "stale" {
		t.Errorf("expected stored preview value, got %q", got)
	}
}

func TestBuildSettingsAndValue(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	n := addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")
	n.Data.Value = "typed"
	n.Data.Settings = domain.Settings{"aspectRatio": "16:9"}

	ec, err := r.Builder.Build(g, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Settings{"aspectRatio": "16:9", "value": "typed"}
	if diff := cmp.Diff(want, ec.Settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
	if _, ok := n.Data.Settings["value"]; ok {
		t.Error("expected node settings to stay untouched")
	}
}

func TestBuildUnknownNode(t *testing.T) {
	r, _ := newTestRunner(t)
	_, err := r.Builder.Build(domain.NewGraph(), "missing")
	if !errors.Is(err, domain.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestFindMentionsLongestFirst(t *testing.T) {
	targets := []Target{
		{Label: "Scene A", NodeID: "short"},
		{Label: "Scene A Wide", NodeID: "long"},
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"long only", "use @Scene A Wide here", []string{"long"}},
		{"short only", "use @Scene A here", []string{"short"}},
		{"both in order", "mix @Scene A Wide with @Scene A", []string{"long", "short"}},
		{"repeat once", "@Scene A and @Scene A again", []string{"short"}},
		{"no at", "Scene A Wide", nil},
		{"unknown", "@Nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range FindMentions(tt.text, targets) {
				got = append(got, m.NodeID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mentions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReferencesResolve(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	wide := addNode(t, g, "w", domain.NodeTypeImageGen, "Scene A Wide")
	wide.Data.OutputResult = "https://x/wide.png"
	short := addNode(t, g, "s", domain.NodeTypeTextInput, "Scene A")
	short.Data.Value = strings.Repeat("x", 800)
	addNode(t, g, "blank", domain.NodeTypeTextInput, "Blank")
	target := addNode(t, g, "gen", domain.NodeTypeImageGen, "Gen")
	target.Data.Value = "Combine @Scene A Wide and @Scene A, ignore @Blank"

	ec, err := r.Builder.Build(g, "gen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ec.References) != 2 {
		t.Fatalf("expected 2 references, got %d: %+v", len(ec.References), ec.References)
	}

	media := ec.References[0]
	if media.NodeID != "w" || !media.Media || media.Value != "https://x/wide.png" {
		t.Errorf("unexpected media reference: %+v", media)
	}

	text := ec.References[1]
	if text.NodeID != "s" || text.Media {
		t.Errorf("unexpected text reference: %+v", text)
	}
	if got := len([]rune(text.Value)); got != DefaultTextLimit+3 {
		t.Errorf("expected text truncated to %d runes plus ellipsis, got %d", DefaultTextLimit, got)
	}
}

func TestReferencesUseTypeWhenUnlabelled(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	src := addNode(t, g, "a", domain.NodeTypeTextInput, "")
	src.Data.Value = "moody"
	target := addNode(t, g, "b", domain.NodeTypeAIRefine, "Refiner")
	target.Data.Value = "make it @text_input"

	ec, err := r.Builder.Build(g, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ec.References) != 1 || ec.References[0].Value != "moody" {
		t.Errorf("expected reference by type, got %+v", ec.References)
	}
}

func TestRunNodeLifecycle(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	text := addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")
	text.Data.Value = "A cat"
	gen := addNode(t, g, "i1", domain.NodeTypeImageGen, "Gen")
	connect(t, g, r.Registry, "t1", "output", "i1", "prompt")

	res, err := r.RunNode(context.Background(), g, "i1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Data.Status != domain.NodeStatusDone {
		t.Errorf("expected done, got %s", gen.Data.Status)
	}
	if gen.Data.OutputResult != res.Value || !domain.IsMedia(res.Value) {
		t.Errorf("expected stored media result, got %q", gen.Data.OutputResult)
	}
	if text.Data.Status != domain.NodeStatusIdle {
		t.Errorf("expected upstream untouched, got %s", text.Data.Status)
	}
}

func TestRunNodeFailureKeepsOutput(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	a := addNode(t, g, "a", domain.NodeTypeAudioGen, "Voice")
	a.Data.OutputResult = "https://x/old.wav"

	_, err := r.RunNode(context.Background(), g, "a")
	var execErr *registry.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if a.Data.Status != domain.NodeStatusError {
		t.Errorf("expected error status, got %s", a.Data.Status)
	}
	if a.Data.ErrorMessage != "Audio generation requires text input." {
		t.Errorf("unexpected error message %q", a.Data.ErrorMessage)
	}
	if a.Data.OutputResult != "https://x/old.wav" {
		t.Errorf("expected previous output kept, got %q", a.Data.OutputResult)
	}
}

func TestRunNodeRejectsGroup(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	addNode(t, g, "g1", domain.NodeTypeGroup, "Group 1")

	if _, err := r.RunNode(context.Background(), g, "g1"); !errors.Is(err, ErrNotRunnable) {
		t.Fatalf("expected ErrNotRunnable, got %v", err)
	}
}

func TestNewPlan(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")
	addNode(t, g, "img", domain.NodeTypeImageGen, "Gen")
	addNode(t, g, "vid", domain.NodeTypeVideoGen, "Motion")
	addNode(t, g, "other", domain.NodeTypeTextInput, "Unrelated")
	connect(t, g, r.Registry, "t1", "output", "img", "prompt")
	connect(t, g, r.Registry, "t1", "output", "vid", "prompt")
	connect(t, g, r.Registry, "img", "image", "vid", "start_image")

	t.Run("upstream closure", func(t *testing.T) {
		plan, err := NewPlan(g, "vid")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := [][]string{{"t1"}, {"img"}, {"vid"}}
		if diff := cmp.Diff(want, plan.Levels); diff != "" {
			t.Errorf("levels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("whole graph", func(t *testing.T) {
		plan, err := NewPlan(g)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := [][]string{{"t1", "other"}, {"img"}, {"vid"}}
		if diff := cmp.Diff(want, plan.Levels); diff != "" {
			t.Errorf("levels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		if _, err := NewPlan(g, "nope"); !errors.Is(err, domain.ErrNodeNotFound) {
			t.Fatalf("expected ErrNodeNotFound, got %v", err)
		}
	})
}

func TestNewPlanCycle(t *testing.T) {
	g := domain.NewGraph()
	addNode(t, g, "a", domain.NodeTypePreview, "A")
	addNode(t, g, "b", domain.NodeTypePreview, "B")
	g.Edges = append(g.Edges,
		domain.NewEdge("a", "output", "b", "input"),
		domain.NewEdge("b", "output", "a", "input"),
	)

	if _, err := NewPlan(g, "b"); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestWorkflowRun(t *testing.T) {
	r, sim := newTestRunner(t)
	g := domain.NewGraph()
	text := addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")
	text.Data.Value = "A misty forest"
	addNode(t, g, "img", domain.NodeTypeImageGen, "Gen")
	addNode(t, g, "voice", domain.NodeTypeAudioGen, "Voice")
	addNode(t, g, "vid", domain.NodeTypeVideoGen, "Motion")
	connect(t, g, r.Registry, "t1", "output", "img", "prompt")
	connect(t, g, r.Registry, "img", "image", "vid", "start_image")

	var mu sync.Mutex
	var statuses []domain.NodeStatus
	wf := NewWorkflow(r)
	wf.OnNode = func(n *domain.Node) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, n.Data.Status)
	}

	report, err := wf.Run(context.Background(), "p1", g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Done) != 3 {
		t.Errorf("expected 3 done, got %v", report.Done)
	}
	if msg := report.Failed["voice"]; msg != "Audio generation requires text input." {
		t.Errorf("expected voice failure recorded, got %q", msg)
	}

	vid := g.Node("vid")
	if vid.Data.Status != domain.NodeStatusDone {
		t.Errorf("expected video done, got %s", vid.Data.Status)
	}
	var videoReq generation.VideoRequest
	for _, c := range sim.Calls() {
		if c.Op == "video" {
			videoReq = c.Request.(generation.VideoRequest)
		}
	}
	if videoReq.StartImage != g.Node("img").Data.OutputResult {
		t.Errorf("expected video start frame from image result, got %q", videoReq.StartImage)
	}

	if len(statuses) != 8 {
		t.Errorf("expected 8 status notifications, got %d", len(statuses))
	}
}

func TestWorkflowCancelled(t *testing.T) {
	r, _ := newTestRunner(t)
	g := domain.NewGraph()
	addNode(t, g, "t1", domain.NodeTypeTextInput, "Prompt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWorkflow(r).Run(ctx, "p1", g)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
