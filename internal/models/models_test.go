package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNodeKind(t *testing.T) {
	kind, ok := ParseNodeKind(" Category ")
	require.True(t, ok)
	require.Equal(t, KindCategory, kind)
	require.Equal(t, "categories", kind.Plural())
	require.Equal(t, "materials", KindMaterial.Plural())

	_, ok = ParseNodeKind("brand")
	require.False(t, ok)
}

func TestGridItemProductID(t *testing.T) {
	var item GridItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"product","props":{"product_id":42}}`), &item))
	id, ok := item.ProductID()
	require.True(t, ok)
	require.Equal(t, uint(42), id)

	item.Props["product_id"] = "17"
	id, ok = item.ProductID()
	require.True(t, ok)
	require.Equal(t, uint(17), id)

	item.Props["product_id"] = 1.5
	_, ok = item.ProductID()
	require.False(t, ok)

	text := GridItem{Type: GridText, Props: map[string]any{"product_id": 3}}
	_, ok = text.ProductID()
	require.False(t, ok)
}

func TestTreeNodeAssetPaths(t *testing.T) {
	img := "categories/images/a.png"
	empty := ""
	swatch := "materials/images/oak.jpg"
	node := &TreeNode{
		Img:  &img,
		Icon: &empty,
		Grid: []GridItem{
			{ID: "1", Type: GridImage, File: &GridFile{URL: "categories/files/g.png"}},
			{ID: "2", Type: GridText},
		},
		LeafValues: []LeafValue{{Name: "Oak", Img: &swatch}, {Name: "Ash"}},
	}

	require.Equal(t, []string{img, "categories/files/g.png", swatch}, node.AssetPaths())
}

func TestStripDecorations(t *testing.T) {
	items := []GridItem{{ID: "1", Type: GridProduct, ProductInfo: &ProductSnapshot{ID: 1}}}
	stripped := StripDecorations(items)
	require.Nil(t, stripped[0].ProductInfo)
	require.NotNil(t, items[0].ProductInfo)
}
