package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/size"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// DeviceListModel - Interactive device selection
// =============================================================================

// DeviceListModel is the bubbletea model for interactive device selection.
type DeviceListModel struct {
	Devices  []catalog.Device
	Cursor   int
	Selected *catalog.Device
	Height   int
	Offset   int
}

// NewDeviceListModel creates a new device list model with the cursor on
// the device whose key is current, if any.
func NewDeviceListModel(devices []catalog.Device, current string) DeviceListModel {
	m := DeviceListModel{Devices: devices, Height: 15}
	for i, d := range devices {
		if d.Key == current {
			m.Cursor = i
		}
	}
	if m.Cursor >= m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m
}

func (m DeviceListModel) Init() tea.Cmd {
	return nil
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Devices)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Devices) == 0 {
				return m, tea.Quit
			}
			d := m.Devices[m.Cursor]
			m.Selected = &d
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m DeviceListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Device"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Devices))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		d := m.Devices[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		var flash uint64
		for _, r := range d.Regions {
			if strings.HasPrefix(r.Name, "flash_") {
				flash += r.Size
			}
		}
		rows = append(rows, []string{cursor, d.Key, d.Name, size.FormatBytes(flash), fmt.Sprint(len(d.Regions))})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Device", "Name", "Flash", "Regions").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Devices))))

	return b.String()
}

// =============================================================================
// TemplateListModel - Interactive template selection
// =============================================================================

// noTemplate is the picker entry for starting with an empty layout.
const noTemplate = "none"

// TemplateListModel is the bubbletea model for interactive template
// selection. The last entry starts an empty layout.
type TemplateListModel struct {
	Templates []catalog.Template
	Suggested string
	Cursor    int
	Selected  string
}

// NewTemplateListModel creates a new template list model with the cursor
// on the suggested template.
func NewTemplateListModel(templates []catalog.Template, suggested string) TemplateListModel {
	m := TemplateListModel{Templates: templates, Suggested: suggested}
	for i, t := range templates {
		if t.Key == suggested {
			m.Cursor = i
		}
	}
	return m
}

func (m TemplateListModel) Init() tea.Cmd {
	return nil
}

func (m TemplateListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Templates) {
				m.Cursor++
			}
		case "enter":
			if m.Cursor == len(m.Templates) {
				m.Selected = noTemplate
			} else {
				m.Selected = m.Templates[m.Cursor].Key
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m TemplateListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Template"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i := 0; i <= len(m.Templates); i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}

		var line string
		if i == len(m.Templates) {
			line = fmt.Sprintf("%s  %-18s  %s", cursor, noTemplate, listDimStyle.Render("empty layout"))
		} else {
			t := m.Templates[i]
			mark := " "
			if t.Key == m.Suggested {
				mark = StyleSuccess.Render("*")
			}
			line = fmt.Sprintf("%s%s %-18s  %s", cursor, mark, t.Key, listDimStyle.Render(t.Description))
		}

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(strings.Repeat("-", 40)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s suggested for this device\n", StyleSuccess.Render("*")))

	return b.String()
}
