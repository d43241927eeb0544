package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/flashplan/pkg/catalog"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDeviceListModel(t *testing.T) {
	devices := catalog.Builtin().Devices()
	m := NewDeviceListModel(devices, "nrf5340")
	if m.Cursor != 2 {
		t.Fatalf("Cursor = %d, want 2 (nrf5340)", m.Cursor)
	}

	var model tea.Model = m
	model, _ = model.Update(key("down"))
	model, _ = model.Update(key("up"))
	model, _ = model.Update(key("down"))
	model, _ = model.Update(key("down"))
	model, cmd := model.Update(key("enter"))

	dm := model.(DeviceListModel)
	if dm.Selected == nil || dm.Selected.Key != "nrf54l15" {
		t.Fatalf("Selected = %+v, want nrf54l15", dm.Selected)
	}
	if cmd == nil {
		t.Error("enter should quit")
	}

	view := dm.View()
	if !strings.Contains(view, "Select Device") || !strings.Contains(view, "nrf9160") {
		t.Errorf("View() missing content:\n%s", view)
	}
}

func TestDeviceListModelQuit(t *testing.T) {
	m := NewDeviceListModel(catalog.Builtin().Devices(), "")
	model, cmd := m.Update(key("q"))
	if model.(DeviceListModel).Selected != nil {
		t.Error("quit should not select")
	}
	if cmd == nil {
		t.Error("q should quit")
	}

	model, _ = m.Update(key("up"))
	if model.(DeviceListModel).Cursor != 0 {
		t.Error("cursor should stop at the top")
	}
}

func TestTemplateListModel(t *testing.T) {
	templates := catalog.Builtin().Templates()
	m := NewTemplateListModel(templates, "fota_external")
	if m.Cursor != 1 {
		t.Fatalf("Cursor = %d, want 1", m.Cursor)
	}
	if !strings.Contains(m.View(), noTemplate) {
		t.Error("View() should offer the empty layout")
	}

	var model tea.Model = m
	model, _ = model.Update(key("enter"))
	if got := model.(TemplateListModel).Selected; got != "fota_external" {
		t.Errorf("Selected = %q, want fota_external", got)
	}

	model = m
	for range len(templates) + 3 {
		model, _ = model.Update(key("j"))
	}
	model, _ = model.Update(key("enter"))
	if got := model.(TemplateListModel).Selected; got != noTemplate {
		t.Errorf("Selected = %q, want %q", got, noTemplate)
	}
}
