package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"expeditor/internal/api"
	"expeditor/internal/kitchen"
	"expeditor/internal/models"
	"expeditor/internal/session"
)

var tabs = []string{"all", "active", "confirmed", "preparing", "ready"}

// Model defines the application state
type Model struct {
	client  *api.Client
	store   *session.Store
	loop    *kitchen.Loop
	spinner spinner.Model

	username textinput.Model
	password textinput.Model

	currentView string // "login", "board", "detail"
	orders      []models.Order
	tab         int
	cursor      int
	detailID    string
	itemCursor  int
	stale       bool
	loading     bool
	error       string
}

func initialModel(client *api.Client, store *session.Store, loop *kitchen.Loop) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Width = 24
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 64
	password.Width = 24
	password.EchoMode = textinput.EchoPassword

	view := "login"
	if store.Valid(time.Now()) {
		view = "board"
	}

	return Model{
		client:      client,
		store:       store,
		loop:        loop,
		spinner:     s,
		username:    username,
		password:    password,
		currentView: view,
	}
}

// Custom message types for the tea.Model
type snapshotMsg struct {
	orders []models.Order
}

type pollFailedMsg struct {
	err error
}

type loginDoneMsg struct {
	err error
}

type actionDoneMsg struct {
	err error
}

type sessionExpiredMsg struct{}

// waitForEvent bridges the synchronization loop's channel into the tea
// runtime. Re-issued after every received event.
func waitForEvent(loop *kitchen.Loop) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-loop.Events()
		if !ok {
			return nil
		}
		switch event.Type {
		case kitchen.EventPollFailed:
			return pollFailedMsg{err: event.Err}
		default:
			return snapshotMsg{orders: loop.Snapshot()}
		}
	}
}

func doLogin(client *api.Client, store *session.Store, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp, err := client.Login(ctx, username, password)
		if err != nil {
			return loginDoneMsg{err: err}
		}
		if err := store.SetCredentials(resp.Token, resp.User); err != nil {
			return loginDoneMsg{err: err}
		}
		return loginDoneMsg{}
	}
}

func advanceOrder(loop *kitchen.Loop, orderID string, status models.OrderStatus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionDoneMsg{err: loop.RequestOrderStatus(ctx, orderID, status, "")}
	}
}

func advanceItem(loop *kitchen.Loop, orderID, itemID string, status models.ItemStatus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionDoneMsg{err: loop.RequestItemStatus(ctx, orderID, itemID, status)}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tea.EnterAltScreen, waitForEvent(m.loop)}
	if m.currentView == "login" {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == "login" {
			return m.updateLogin(msg)
		}
		return m.updateKeys(msg)

	case snapshotMsg:
		m.orders = msg.orders
		m.stale = false
		m.error = ""
		m.clampCursor()
		return m, waitForEvent(m.loop)

	case pollFailedMsg:
		// Last-known-good board stays up; just flag it as stale.
		m.stale = true
		m.error = msg.err.Error()
		return m, waitForEvent(m.loop)

	case loginDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.error = msg.err.Error()
			return m, nil
		}
		m.error = ""
		m.currentView = "board"
		m.loop.Refresh()
		return m, nil

	case actionDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.error = msg.err.Error()
		} else {
			m.error = ""
		}
		return m, nil

	case sessionExpiredMsg:
		m.currentView = "login"
		m.username.SetValue("")
		m.password.SetValue("")
		m.username.Focus()
		m.password.Blur()
		m.error = "session expired, sign in again"
		return m, textinput.Blink

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if m.username.Focused() {
			m.username.Blur()
			m.password.Focus()
		} else {
			m.password.Blur()
			m.username.Focus()
		}
		return m, textinput.Blink
	case "enter":
		if m.username.Value() == "" || m.password.Value() == "" {
			m.error = "username and password are required"
			return m, nil
		}
		m.loading = true
		m.error = ""
		return m, doLogin(m.client, m.store, m.username.Value(), m.password.Value())
	}

	var cmd tea.Cmd
	if m.username.Focused() {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "r":
		m.loop.Refresh()
		return m, nil

	case "left", "h":
		if m.currentView == "board" && m.tab > 0 {
			m.tab--
			m.cursor = 0
		}
		return m, nil

	case "right", "l", "tab":
		if m.currentView == "board" {
			m.tab = (m.tab + 1) % len(tabs)
			m.cursor = 0
		}
		return m, nil

	case "up", "k":
		if m.currentView == "board" && m.cursor > 0 {
			m.cursor--
		} else if m.currentView == "detail" && m.itemCursor > 0 {
			m.itemCursor--
		}
		return m, nil

	case "down", "j":
		if m.currentView == "board" && m.cursor < len(m.visibleOrders())-1 {
			m.cursor++
		} else if m.currentView == "detail" {
			if order, ok := m.loop.Get(m.detailID); ok && m.itemCursor < len(order.Items)-1 {
				m.itemCursor++
			}
		}
		return m, nil

	case "enter":
		if m.currentView == "board" {
			visible := m.visibleOrders()
			if m.cursor < len(visible) {
				m.detailID = visible[m.cursor].ID
				m.itemCursor = 0
				m.currentView = "detail"
			}
		}
		return m, nil

	case "esc":
		if m.currentView == "detail" {
			m.currentView = "board"
			m.error = ""
		}
		return m, nil

	case " ", "a":
		// Advance the selected order one step.
		var target *models.Order
		if m.currentView == "board" {
			visible := m.visibleOrders()
			if m.cursor < len(visible) {
				target = &visible[m.cursor]
			}
		} else if order, ok := m.loop.Get(m.detailID); ok {
			target = &order
		}
		if target == nil {
			return m, nil
		}
		action, ok := models.NextOrderAction(target.Status)
		if !ok {
			return m, nil
		}
		m.loading = true
		return m, advanceOrder(m.loop, target.ID, action.Next)

	case "i":
		// Advance the selected item one step.
		if m.currentView != "detail" {
			return m, nil
		}
		order, ok := m.loop.Get(m.detailID)
		if !ok || m.itemCursor >= len(order.Items) {
			return m, nil
		}
		item := order.Items[m.itemCursor]
		action, ok := models.NextItemAction(item.Status)
		if !ok {
			return m, nil
		}
		m.loading = true
		return m, advanceItem(m.loop, order.ID, item.ID, action.Next)
	}

	return m, nil
}

func (m *Model) clampCursor() {
	if n := len(m.visibleOrders()); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	} else if n == 0 {
		m.cursor = 0
	}
}

func (m Model) visibleOrders() []models.Order {
	return kitchen.FilterTab(m.orders, tabs[m.tab])
}

// View renders the UI
func (m Model) View() string {
	switch m.currentView {
	case "login":
		return docStyle.Render(m.loginView())
	case "detail":
		return docStyle.Render(m.detailView())
	default:
		return docStyle.Render(m.boardView())
	}
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Expeditor — Sign In") + "\n\n")
	b.WriteString(m.username.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")
	if m.loading {
		b.WriteString(m.spinner.View() + " signing in...\n")
	}
	if m.error != "" {
		b.WriteString(errorStyle.Render(m.error) + "\n")
	}
	b.WriteString(helpStyle.Render("tab: switch field • enter: sign in • ctrl+c: quit"))
	return b.String()
}

func (m Model) boardView() string {
	now := time.Now()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Expeditor — Kitchen Display") + " ")
	stats := kitchen.Summarize(m.orders)
	b.WriteString(statsStyle.Render(fmt.Sprintf(
		"confirmed %d • preparing %d • ready %d • total %d",
		stats.Confirmed, stats.Preparing, stats.Ready, stats.Total)))
	if m.stale {
		b.WriteString(" " + staleStyle.Render("⚠ showing last known orders"))
	}
	b.WriteString("\n\n")

	var rendered []string
	for i, tab := range tabs {
		if i == m.tab {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, tabStyle.Render(tab))
		}
	}
	b.WriteString(strings.Join(rendered, " ") + "\n\n")

	visible := m.visibleOrders()
	if len(visible) == 0 {
		b.WriteString(helpStyle.Render("no orders on this tab") + "\n")
	}
	for i, order := range visible {
		b.WriteString(m.renderCard(order, i == m.cursor, now) + "\n")
	}

	if m.error != "" {
		b.WriteString(errorStyle.Render(m.error) + "\n")
	}
	b.WriteString(helpStyle.Render("←/→: tabs • ↑/↓: select • enter: details • space: advance • r: refresh • q: quit"))
	return b.String()
}

func (m Model) renderCard(order models.Order, selected bool, now time.Time) string {
	urgency := kitchen.Classify(order.CreatedAt, now)

	header := fmt.Sprintf("%s  %s", order.OrderNumber, tierStyles[urgency.Tier].Render(urgency.Label))
	where := string(order.OrderType)
	if order.Table != nil {
		where = fmt.Sprintf("table %s (%s)", order.Table.TableNumber, order.Table.Location)
	}

	line := fmt.Sprintf("%s\n%s • %s • waiting %dm • %d items",
		header, order.Status, where, order.WaitTime(now), len(order.Items))
	if order.CustomerName != "" {
		line += " • " + order.CustomerName
	}
	if action, ok := models.NextOrderAction(order.Status); ok {
		line += "\n" + helpStyle.Render("space: "+action.Label)
	}

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Copy().BorderForeground(tierBorders[urgency.Tier]).Render(line)
}

func (m Model) detailView() string {
	order, ok := m.loop.Get(m.detailID)
	if !ok {
		return titleStyle.Render("Order") + "\n\nThis order has left the board.\n" +
			helpStyle.Render("esc: back")
	}

	now := time.Now()
	urgency := kitchen.Classify(order.CreatedAt, now)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Order "+order.OrderNumber) + " " +
		tierStyles[urgency.Tier].Render(urgency.Label) + "\n\n")
	b.WriteString(fmt.Sprintf("status: %s\ntype: %s\nwaiting: %dm\n", order.Status, order.OrderType, order.WaitTime(now)))
	if order.Table != nil {
		b.WriteString(fmt.Sprintf("table: %s (%s)\n", order.Table.TableNumber, order.Table.Location))
	}
	if order.CustomerName != "" {
		b.WriteString("customer: " + order.CustomerName + "\n")
	}
	if order.Notes != "" {
		b.WriteString("notes: " + order.Notes + "\n")
	}

	b.WriteString("\nItems:\n")
	for i, item := range order.Items {
		marker := "  "
		if i == m.itemCursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s%dx %s [%s]", marker, item.Quantity, item.Product.Name, item.Status)
		if item.SpecialInstructions != "" {
			line += " — " + item.SpecialInstructions
		}
		if action, ok := models.NextItemAction(item.Status); ok && i == m.itemCursor {
			line += helpStyle.Render("  (i: " + action.Label + ")")
		}
		b.WriteString(line + "\n")
	}

	if m.loading {
		b.WriteString("\n" + m.spinner.View() + " working...\n")
	}
	if m.error != "" {
		b.WriteString("\n" + errorStyle.Render(m.error) + "\n")
	}

	help := "↑/↓: select item • i: advance item"
	if action, ok := models.NextOrderAction(order.Status); ok {
		help = "space: " + action.Label + " • " + help
	}
	b.WriteString("\n" + helpStyle.Render(help+" • esc: back • q: quit"))
	return b.String()
}
