package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 2 {
		t.Fatalf("ThemeNames() returned %d names, want 2", len(names))
	}
	if names[0] != "Dracula" || names[1] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Dracula Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Dracula"); got != "Slate" {
		t.Fatalf("NextTheme(Dracula) = %q, want Slate", got)
	}
	if got := NextTheme("Slate"); got != "Dracula" {
		t.Fatalf("NextTheme(Slate) = %q, want Dracula", got)
	}
	if got := NextTheme("Unknown"); got != "Dracula" {
		t.Fatalf("NextTheme(Unknown) = %q, want Dracula", got)
	}
}

func TestGetTheme(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("nope").Name; got != DefaultThemeName {
		t.Fatalf("GetTheme(nope).Name = %q, want %q", got, DefaultThemeName)
	}
}

func TestStatusColor(t *testing.T) {
	th := GetTheme("Dracula")
	styles := th.Styles()

	if got := styles.StatusColor("  Delivered "); got != th.StatusColors["delivered"] {
		t.Fatalf("StatusColor(delivered) = %q, want %q", got, th.StatusColors["delivered"])
	}
	if got := styles.StatusColor("lost_in_space"); got != th.Muted {
		t.Fatalf("StatusColor(unknown) = %q, want muted %q", got, th.Muted)
	}
	if got := styles.WithBackground(th.Surface).StatusColor("cancelled"); got != th.StatusColors["cancelled"] {
		t.Fatalf("WithBackground lost status colors: %q", got)
	}
}

func TestThemesCoverTrackingStatuses(t *testing.T) {
	statuses := []string{"pending", "confirmed", "processing", "shipped", "out_for_delivery", "delivered", "cancelled"}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, s := range statuses {
			if th.StatusColors[s] == "" {
				t.Errorf("theme %s has no color for %q", name, s)
			}
		}
	}
}
