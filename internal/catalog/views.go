package catalog

// ItemView is an Item with display labels resolved.
type ItemView struct {
	*Item
	ItemTypeLabel string `json:"item_type_label"`
}

func newItemView(item *Item) ItemView {
	return ItemView{Item: item, ItemTypeLabel: item.ItemType.Label()}
}

func itemViews(items []*Item) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	return views
}

// CopyView is a Copy with display labels resolved.
type CopyView struct {
	*Copy
	StatusLabel    string `json:"status_label"`
	ConditionLabel string `json:"condition_label"`
	ItemTypeLabel  string `json:"item_type_label,omitempty"`
	Selectable     bool   `json:"selectable"`
}

func newCopyView(c *Copy) CopyView {
	if c == nil {
		return CopyView{}
	}
	v := CopyView{
		Copy:           c,
		StatusLabel:    c.Status.Label(),
		ConditionLabel: c.Condition.Label(),
		Selectable:     c.Selectable(),
	}
	if c.ItemType != "" {
		v.ItemTypeLabel = c.ItemType.Label()
	}
	return v
}

func copyViews(copies []*Copy) []CopyView {
	views := make([]CopyView, 0, len(copies))
	for _, c := range copies {
		views = append(views, newCopyView(c))
	}
	return views
}
