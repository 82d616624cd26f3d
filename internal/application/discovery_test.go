package application

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/mrcov/internal/domain"
)

func variantIDs(vs []domain.Variant) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestDiscoverByConvention(t *testing.T) {
	runs := []domain.RunRef{"test", "java21Test", "integrationTest", "java11Test", "javaTest", "java17Test"}

	got := DiscoverByConvention(runs, domain.DefaultNamingConvention())

	var versions []string
	for _, v := range got {
		versions = append(versions, v.Version)
	}
	if diff := cmp.Diff([]string{"11", "17", "21"}, versions); diff != "" {
		t.Fatalf("versions mismatch (-want +got):\n%s", diff)
	}
	if got[1].ID != "java17" || got[1].Run != "java17Test" {
		t.Fatalf("unexpected variant %+v", got[1])
	}
	if got[0].HasOverride() {
		t.Fatal("convention variants carry no roots")
	}
}

func TestDiscoverVariantsAttachesOverrides(t *testing.T) {
	reg, err := Register(multiReleaseConfig())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	variants := DiscoverVariants(reg)
	if diff := cmp.Diff([]string{"java11", "java17", "java21"}, variantIDs(variants)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if !variants[1].Sources.Equal(domain.NewFileRoot(p("src/main/java17"))) {
		t.Fatalf("java17 sources not attached: %s", variants[1].Sources)
	}
	if variants[2].HasOverride() {
		t.Fatal("java21 has no override roots registered")
	}
}

func TestDiscoverVariantsRegistryWins(t *testing.T) {
	cfg := multiReleaseConfig()
	cfg.Variants = []VariantConfig{
		{ID: "java17", Version: "17", Run: "java17Test", Sources: []string{"alt/java17"}},
		{ID: "integration", Version: "it", Run: "integrationTest"},
	}
	reg, err := Register(cfg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	variants := DiscoverVariants(reg)
	if diff := cmp.Diff([]string{"java11", "java17", "java21", "integration"}, variantIDs(variants)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if !variants[1].Sources.Equal(domain.NewFileRoot(p("alt/java17"))) {
		t.Fatalf("registry roots must win, got %s", variants[1].Sources)
	}
	if !variants[1].Outputs.IsEmpty() {
		t.Fatalf("registry entry with its own roots keeps them, got %s", variants[1].Outputs)
	}
}

func TestDiscoverVariantsDisabledConvention(t *testing.T) {
	cfg := multiReleaseConfig()
	cfg.Discovery.Disabled = true
	cfg.Variants = []VariantConfig{{ID: "java11", Version: "11", Run: "java11Test"}}
	reg, err := Register(cfg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	variants := DiscoverVariants(reg)
	if len(variants) != 1 || variants[0].ID != "java11" {
		t.Fatalf("expected only the registry, got %v", variantIDs(variants))
	}
	if !variants[0].Sources.Equal(domain.NewFileRoot(p("src/main/java11"))) {
		t.Fatalf("registry entry without roots takes overrides, got %s", variants[0].Sources)
	}
}

func TestDiscoverVariantsDeterministic(t *testing.T) {
	reg, err := Register(multiReleaseConfig())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	first := variantIDs(DiscoverVariants(reg))
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, variantIDs(DiscoverVariants(reg))); diff != "" {
			t.Fatalf("discovery is not deterministic (-first +again):\n%s", diff)
		}
	}
}
