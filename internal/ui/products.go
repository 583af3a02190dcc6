package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shopaura/internal/api"
)

func (m *Model) loadProductsCmd() tea.Cmd {
	if m.svc.Catalog == nil {
		return nil
	}
	catalog := m.svc.Catalog
	query := m.query
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()
		page, err := catalog.ListProducts(ctx, query)
		return productsMsg{page: page, err: err}
	}
}

// categoryOption is one entry of the category filter. The first option is
// always "All categories" with an empty slug.
type categoryOption struct {
	label string
	slug  string
}

// categoryOptions flattens the category tree, parents before their children.
func categoryOptions(categories []api.Category) []categoryOption {
	opts := []categoryOption{{label: "All categories"}}
	for _, node := range api.BuildCategoryTree(categories) {
		opts = append(opts, categoryOption{label: node.Name, slug: categorySlug(node.Category)})
		for _, child := range node.Children {
			opts = append(opts, categoryOption{label: node.Name + " / " + child.Name, slug: categorySlug(child)})
		}
	}
	return opts
}

func categorySlug(c api.Category) string {
	if c.Slug != "" {
		return c.Slug
	}
	return c.ID
}

func (m *Model) loadCategoriesCmd() tea.Cmd {
	if m.svc.Catalog == nil {
		return nil
	}
	catalog := m.svc.Catalog
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()
		categories, err := catalog.ListCategories(ctx)
		return categoriesMsg{categories: categories, err: err}
	}
}

// nextCategory moves the filter to the next category and reloads from the
// first page.
func (m Model) nextCategory() (tea.Model, tea.Cmd) {
	if len(m.categories) < 2 {
		return m, nil
	}
	next := 0
	for i, opt := range m.categories {
		if opt.slug == m.query.Category {
			next = (i + 1) % len(m.categories)
			break
		}
	}
	m.query.Category = m.categories[next].slug
	m.query.Page = 1
	m.cursors[ViewProducts] = 0
	return m, m.loadProductsCmd()
}

func (m Model) categoryLabel() string {
	for _, opt := range m.categories {
		if opt.slug == m.query.Category {
			return opt.label
		}
	}
	return m.query.Category
}

func (m Model) selectedProduct() (api.Product, bool) {
	if len(m.products) == 0 {
		return api.Product{}, false
	}
	cur := min(m.cursors[ViewProducts], len(m.products)-1)
	return m.products[cur], true
}

// handleProductsKey processes keyboard input for the product list.
func (m Model) handleProductsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(ViewProducts, msg, len(m.products)) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Search):
		m.openPrompt(promptSearch, "Search: ", m.query.Search)
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadProductsCmd()
	case key.Matches(msg, m.keys.Category):
		return m.nextCategory()
	case key.Matches(msg, m.keys.CartDrawer):
		if !m.authenticated() {
			return m.switchView(ViewLogin)
		}
		m.svc.Cart.Toggle()
		return m, nil
	case key.Matches(msg, m.keys.Checkout) && m.authenticated() && m.svc.Cart.IsOpen():
		return m.beginCheckout()
	case key.Matches(msg, m.keys.NextPage):
		if m.query.Page < m.totalPages {
			m.query.Page++
			m.cursors[ViewProducts] = 0
			return m, m.loadProductsCmd()
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevPage):
		if m.query.Page > 1 {
			m.query.Page--
			m.cursors[ViewProducts] = 0
			return m, m.loadProductsCmd()
		}
		return m, nil
	}

	p, ok := m.selectedProduct()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m.openProduct(p.ID)
	case key.Matches(msg, m.keys.AddToCart):
		if !m.authenticated() {
			return m.switchView(ViewLogin)
		}
		cartMgr := m.svc.Cart
		return m, m.runOp("add to cart", nil, func(ctx context.Context) error {
			return cartMgr.AddToCart(ctx, p, 1)
		})
	case key.Matches(msg, m.keys.ToggleWishlist):
		if !m.authenticated() {
			return m.switchView(ViewLogin)
		}
		wl := m.svc.Wishlist
		return m, m.runOp("toggle wishlist", nil, func(ctx context.Context) error {
			_, err := wl.Toggle(ctx, p)
			return err
		})
	}
	return m, nil
}

// applySearch runs a new search from the first page.
func (m Model) applySearch(text string) (tea.Model, tea.Cmd) {
	m.query.Search = strings.TrimSpace(text)
	m.query.Page = 1
	m.cursors[ViewProducts] = 0
	return m, m.loadProductsCmd()
}

// renderProducts renders the product list with cart and wishlist markers.
func (m Model) renderProducts() string {
	styles := m.theme.Styles()
	if m.productsErr != nil {
		return styles.DangerText.Render("Could not load products: " + api.Message(m.productsErr, "request failed"))
	}
	if !m.productsSeen {
		return m.emptyState("Loading products...")
	}
	if len(m.products) == 0 {
		if m.query.Search != "" {
			return m.emptyState(fmt.Sprintf("No products match %q", m.query.Search))
		}
		if m.query.Category != "" {
			return m.emptyState("No products in " + m.categoryLabel())
		}
		return m.emptyState("No products available")
	}

	width := m.innerWidth()
	drawer := m.authenticated() && m.svc.Cart.IsOpen()
	if drawer {
		width = max(width-drawerWidth-2, 20)
	}
	authed := m.authenticated()
	rows := make([]string, len(m.products))
	for i, p := range m.products {
		marks := "  "
		if authed {
			if m.svc.Wishlist.IsInWishlist(p.ID) {
				marks = "♥ "
			}
			if q := m.svc.Cart.ItemQuantity(p.ID); q > 0 {
				marks += fmt.Sprintf("[%d] ", q)
			}
		}
		row := padRight(marks+truncate(p.Name, 40), 48) + padRight(api.FormatPrice(m.currency, productPrice(p)), 12)
		if m.width >= LayoutWideWidth {
			row += padRight(stars(p.AverageRating), 8) + fmt.Sprintf(" (%d)", p.NumReviews)
		}
		if p.Stock <= 0 {
			row += "  out of stock"
		}
		rows[i] = row
	}

	cursor := m.clampedCursor(ViewProducts, len(rows))
	list := m.renderList(rows, cursor, m.listHeight(2), width)
	if drawer {
		list = lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(width+2).Render(list), m.renderCartDrawer())
	}
	pageInfo := fmt.Sprintf("Page %d of %d", m.query.Page, max(m.totalPages, 1))
	if m.query.Category != "" {
		pageInfo += "  " + m.categoryLabel()
	}
	return list + "\n\n" + styles.FaintText.Render(pageInfo)
}

// renderCartDrawer is the compact cart shown beside the product list.
func (m Model) renderCartDrawer() string {
	styles := m.theme.Styles()
	lines := m.svc.Cart.Lines()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Cart"))
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString(styles.MutedText.Render("Empty"))
	}
	for _, l := range lines {
		b.WriteString(styles.Text.Render(padRight(truncate(l.Product.Name, drawerWidth-8), drawerWidth-6) + fmt.Sprintf("x%d", l.Quantity)))
		b.WriteString("\n")
	}
	if len(lines) > 0 {
		b.WriteString(styles.Text.Bold(true).Render("Total " + api.FormatPrice(m.currency, m.svc.Cart.Total())))
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("c checkout  v close"))
	}
	return lipgloss.NewStyle().Width(drawerWidth).Render(b.String())
}

// productPrice prefers the discounted price when the backend sends one.
func productPrice(p api.Product) float64 {
	if p.FinalPrice > 0 {
		return p.FinalPrice
	}
	return p.Price
}

// clampedCursor is the cursor for v bounded to count rows, without storing it.
func (m Model) clampedCursor(v View, count int) int {
	cur := m.cursors[v]
	if cur >= count {
		cur = count - 1
	}
	return max(cur, 0)
}
