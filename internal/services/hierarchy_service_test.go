package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/catalogadmin/internal/database/testutil"
	"github.com/charlesng35/catalogadmin/internal/models"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

func createNode(t *testing.T, svc *HierarchyService, name string, parent *uint) *NodeView {
	t.Helper()
	input := NodeInput{Name: strPtr(name), StatusID: activeStatus()}
	if parent != nil {
		input.Parent = OptionalID{Set: true, ID: parent}
	}
	view, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return view
}

func childNames(view *NodeView) []string {
	var names []string
	for _, child := range view.childList() {
		names = append(names, child.Name)
	}
	return names
}

func TestHierarchyCreateChildAndListRoots(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	chairs := createNode(t, svc, "Chairs", nil)
	office := createNode(t, svc, "Office Chairs", &chairs.ID)
	require.Equal(t, &chairs.ID, office.ParentID)

	page, err := svc.List(ctx, ListOptions{Parentless: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, 1, page.LastPage)
	require.Len(t, page.Items, 1)

	root := page.Items[0]
	require.Equal(t, "Chairs", root.Name)
	require.Equal(t, []string{"Office Chairs"}, childNames(root))
	require.Nil(t, root.childList()[0].Children)

	payload, err := json.Marshal(root)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	children := decoded["children"].([]any)
	require.Len(t, children, 1)
	require.NotContains(t, children[0].(map[string]any), "children")
}

func TestHierarchyBuildTreeFullChainWithoutDuplicates(t *testing.T) {
	svc, db, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	a := createNode(t, svc, "A", nil)
	b := createNode(t, svc, "B", nil)
	a1 := createNode(t, svc, "A1", &a.ID)
	createNode(t, svc, "A1x", &a1.ID)
	createNode(t, svc, "A2", &a.ID)
	createNode(t, svc, "B1", &b.ID)

	var roots []models.TreeNode
	require.NoError(t, db.Where("kind = ? AND parent_id IS NULL", models.KindCategory).Order("id").Find(&roots).Error)

	views, err := svc.BuildTree(ctx, roots)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "A", views[0].Name)
	require.Equal(t, "B", views[1].Name)
	require.Equal(t, []string{"A1", "A2"}, childNames(views[0]))
	require.Equal(t, []string{"A1x"}, childNames(views[0].childList()[0]))

	seen := map[uint]int{}
	for _, view := range views {
		view.Walk(func(node *NodeView) { seen[node.ID]++ })
	}
	require.Len(t, seen, 6)
	for id, count := range seen {
		require.Equal(t, 1, count, "node %d emitted twice", id)
	}

	// Leaves carry an empty children list until pruned.
	leaf := views[1].childList()[0]
	require.NotNil(t, leaf.Children)
	require.Empty(t, *leaf.Children)
}

func TestHierarchyFilterChildrenDoesNotPropagateFromDescendants(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	root := createNode(t, svc, "Furniture", nil)
	office := createNode(t, svc, "Office Chairs", &root.ID)
	createNode(t, svc, "Gaming CHAIRS", &office.ID)
	createNode(t, svc, "Desks", &office.ID)
	tables := createNode(t, svc, "Tables", &root.ID)
	createNode(t, svc, "Chair Tables", &tables.ID)

	filtered, err := svc.FilterChildren(ctx, newNodeView(root.TreeNode), "chair")
	require.NoError(t, err)
	require.Equal(t, []string{"Office Chairs"}, childNames(filtered))
	require.Equal(t, []string{"Gaming CHAIRS"}, childNames(filtered.childList()[0]))
}

func TestHierarchyListSearchFiltersRootsAndChildren(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	chairs := createNode(t, svc, "Chairs", nil)
	createNode(t, svc, "Office Chairs", &chairs.ID)
	createNode(t, svc, "Stools", &chairs.ID)
	createNode(t, svc, "Lamps", nil)

	page, err := svc.List(ctx, ListOptions{Parentless: true, Search: "CHAIR"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, "Chairs", page.Items[0].Name)
	require.Equal(t, []string{"Office Chairs"}, childNames(page.Items[0]))
}

func TestHierarchyListSearchFoldsNonASCIIRootsLikeChildren(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	lighting := createNode(t, svc, "Éclairage", nil)
	createNode(t, svc, "Éclairage LED", &lighting.ID)
	createNode(t, svc, "Lampes", &lighting.ID)
	createNode(t, svc, "ÉCLAIRAGE extérieur", nil)
	createNode(t, svc, "Chaises", nil)

	page, err := svc.List(ctx, ListOptions{Parentless: true, Search: "éclairage"})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Éclairage", page.Items[0].Name)
	require.Equal(t, []string{"Éclairage LED"}, childNames(page.Items[0]))
	require.Equal(t, "ÉCLAIRAGE extérieur", page.Items[1].Name)

	page, err = svc.List(ctx, ListOptions{Parentless: true, Search: "ÉCLAIRAGE", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Equal(t, 2, page.LastPage)
	require.Len(t, page.Items, 1)
	require.Equal(t, "ÉCLAIRAGE extérieur", page.Items[0].Name)

	page, err = svc.List(ctx, ListOptions{Parentless: true, Search: "éclairage", Page: 3, PageSize: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Empty(t, page.Items)
}

func TestHierarchyListFlatPagination(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindMaterial)
	ctx := context.Background()

	root := createNode(t, svc, "Wood", nil)
	createNode(t, svc, "Oak", &root.ID)
	createNode(t, svc, "Ash", &root.ID)

	page, err := svc.List(ctx, ListOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Equal(t, 2, page.LastPage)
	require.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 1)
	require.Nil(t, page.Items[0].Children)
}

func TestRemoveEmptyChildren(t *testing.T) {
	empty := []*NodeView{}
	leaf := &NodeView{TreeNode: models.TreeNode{Name: "leaf"}, Children: &empty}
	list := []*NodeView{leaf}
	parent := &NodeView{TreeNode: models.TreeNode{Name: "parent"}, Children: &list}

	pruned := RemoveEmptyChildren(parent)
	require.NotNil(t, pruned.Children)
	require.Len(t, *pruned.Children, 1)
	require.Nil(t, (*pruned.Children)[0].Children)

	payload, err := json.Marshal((*pruned.Children)[0])
	require.NoError(t, err)
	require.NotContains(t, string(payload), `"children"`)

	payload, err = json.Marshal(pruned)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"children"`)

	require.Nil(t, RemoveEmptyChildren(nil))
}

func TestHierarchyCreateValidation(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	_, err := svc.Create(ctx, NodeInput{Name: strPtr("  "), StatusID: uintPtr(99), Parent: OptionalID{Set: true, ID: uintPtr(1234)}})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, "VALIDATION_FAILED", appErr.Code)
	require.Contains(t, appErr.Fields, "name")
	require.Contains(t, appErr.Fields, "status_id")
	require.Contains(t, appErr.Fields, "parent_id")

	page, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestHierarchyRejectsParentOfOtherKind(t *testing.T) {
	svc, db, store := newTestHierarchy(t, models.KindCategory)
	materials, err := NewHierarchyService(db, store, models.KindMaterial)
	require.NoError(t, err)

	oak := createNode(t, materials, "Oak", nil)
	_, err = svc.Create(context.Background(), NodeInput{Name: strPtr("Chairs"), StatusID: activeStatus(), Parent: OptionalID{Set: true, ID: &oak.ID}})
	require.True(t, apperrors.IsValidation(err))
	require.Contains(t, apperrors.FromError(err).Fields, "parent_id")
}

func TestHierarchyUpdateRejectsCycles(t *testing.T) {
	svc, _, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	a := createNode(t, svc, "A", nil)
	b := createNode(t, svc, "B", &a.ID)
	c := createNode(t, svc, "C", &b.ID)

	_, err := svc.Update(ctx, a.ID, NodeInput{Parent: OptionalID{Set: true, ID: &c.ID}})
	require.True(t, apperrors.IsValidation(err))
	require.Contains(t, apperrors.FromError(err).Fields, "parent_id")

	_, err = svc.Update(ctx, a.ID, NodeInput{Parent: OptionalID{Set: true, ID: &a.ID}})
	require.True(t, apperrors.IsValidation(err))

	moved, err := svc.Update(ctx, c.ID, NodeInput{Parent: OptionalID{Set: true}})
	require.NoError(t, err)
	require.Nil(t, moved.ParentID)
}

func TestHierarchyUpdateAssetKeepClearReplace(t *testing.T) {
	svc, _, store := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	created, err := svc.Create(ctx, NodeInput{
		Name:     strPtr("Chairs"),
		StatusID: activeStatus(),
		Img:      upload("chairs.png", "img"),
		Icon:     upload("chairs.svg", "icon"),
	})
	require.NoError(t, err)
	require.NotNil(t, created.Img)
	require.Contains(t, *created.Img, "categories/images/")
	require.Contains(t, *created.Icon, "categories/icons/")
	imgPath, iconPath := *created.Img, *created.Icon
	requireExists(t, store, imgPath, true)

	// Omitted field: value and file untouched.
	kept, err := svc.Update(ctx, created.ID, NodeInput{Description: strPtr("Seating")})
	require.NoError(t, err)
	require.Equal(t, imgPath, *kept.Img)
	require.Equal(t, "Seating", kept.Description)
	requireExists(t, store, imgPath, true)

	// Explicit null clears the field and removes the file.
	cleared, err := svc.Update(ctx, created.ID, NodeInput{Img: Clear()})
	require.NoError(t, err)
	require.Nil(t, cleared.Img)
	requireExists(t, store, imgPath, false)
	require.Equal(t, iconPath, *cleared.Icon)

	// Replace stores the new file and removes the old one.
	replaced, err := svc.Update(ctx, created.ID, NodeInput{Icon: upload("new.svg", "icon2")})
	require.NoError(t, err)
	require.NotEqual(t, iconPath, *replaced.Icon)
	requireExists(t, store, iconPath, false)
	requireExists(t, store, *replaced.Icon, true)
}

func TestHierarchyFailedWriteRemovesStoredFiles(t *testing.T) {
	_, db, store := newTestHierarchy(t, models.KindCategory)
	svc, err := NewHierarchyService(db, failingStore{Store: store}, models.KindCategory)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), NodeInput{
		Name:     strPtr("Chairs"),
		StatusID: activeStatus(),
		Img:      upload("ok.png", "img"),
		Video:    upload("fail.mp4", "video"),
	})
	require.Error(t, err)
	require.Equal(t, "STORAGE_FAILURE", apperrors.FromError(err).Code)

	var count int64
	require.NoError(t, db.Model(&models.TreeNode{}).Count(&count).Error)
	require.Zero(t, count)

	entries, globErr := storeFiles(store.Root())
	require.NoError(t, globErr)
	require.Empty(t, entries)
}

func TestHierarchyLeafValueSync(t *testing.T) {
	svc, db, store := newTestHierarchy(t, models.KindAttribute)
	ctx := context.Background()

	created, err := svc.Create(ctx, NodeInput{
		Name:     strPtr("Finish"),
		StatusID: activeStatus(),
		Values: &[]LeafValueInput{
			{Name: "Matte", Value: "matte", Img: upload("matte.png", "m")},
			{Name: "Gloss", Value: "gloss", Img: upload("gloss.png", "g")},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.LeafValues, 2)
	matte, gloss := created.LeafValues[0], created.LeafValues[1]
	require.Equal(t, "Matte", matte.Name)

	updated, err := svc.Update(ctx, created.ID, NodeInput{
		Values: &[]LeafValueInput{
			{ID: &gloss.ID, Name: "Glossy", Value: "gloss"},
			{Name: "Satin", Value: "satin"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.LeafValues, 2)
	require.Equal(t, gloss.ID, updated.LeafValues[0].ID)
	require.Equal(t, "Glossy", updated.LeafValues[0].Name)
	require.Equal(t, *gloss.Img, *updated.LeafValues[0].Img)
	require.Equal(t, "Satin", updated.LeafValues[1].Name)

	requireExists(t, store, *matte.Img, false)
	requireExists(t, store, *gloss.Img, true)

	var count int64
	require.NoError(t, db.Model(&models.LeafValue{}).Where("id = ?", matte.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestHierarchyGridMergeAndProductInfo(t *testing.T) {
	svc, db, store := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	product := models.Product{Name: "Ergo", SKU: "ERG-1", StatusID: models.StatusActive, Featured: true}
	require.NoError(t, db.Create(&product).Error)

	created, err := svc.Create(ctx, NodeInput{
		Name:     strPtr("Chairs"),
		StatusID: activeStatus(),
		Grid: &[]GridItemInput{
			{Type: models.GridImage, File: upload("banner.jpg", "b")},
			{Type: models.GridVideo, File: upload("clip.mp4", "v")},
			{Type: models.GridProduct, Props: map[string]any{"product_id": product.ID}},
			{Type: models.GridProduct, Props: map[string]any{"product_id": 9999}},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Grid, 4)
	banner, clip := created.Grid[0], created.Grid[1]
	require.NotEmpty(t, banner.ID)
	require.Contains(t, banner.File.URL, "categories/images/")
	require.Contains(t, clip.File.URL, "categories/videos/")
	require.NotNil(t, created.Grid[2].ProductInfo)
	require.Equal(t, "ERG-1", created.Grid[2].ProductInfo.SKU)
	require.Nil(t, created.Grid[3].ProductInfo)

	payload, err := json.Marshal(created.Grid[3])
	require.NoError(t, err)
	require.NotContains(t, string(payload), "product_info")

	// Keep the banner, drop the clip, add a text block.
	updated, err := svc.Update(ctx, created.ID, NodeInput{Grid: &[]GridItemInput{
		{ID: banner.ID, Type: models.GridImage},
		{ID: "unknown", Type: models.GridText, Props: map[string]any{"html": "<p>hi</p>"}},
	}})
	require.NoError(t, err)
	require.Len(t, updated.Grid, 2)
	require.Equal(t, banner.ID, updated.Grid[0].ID)
	require.Equal(t, banner.File.URL, updated.Grid[0].File.URL)
	require.NotEqual(t, "unknown", updated.Grid[1].ID)
	requireExists(t, store, banner.File.URL, true)
	requireExists(t, store, clip.File.URL, false)

	// Product info is never persisted.
	var stored models.TreeNode
	require.NoError(t, db.First(&stored, created.ID).Error)
	for _, item := range stored.Grid {
		require.Nil(t, item.ProductInfo)
	}
}

type recordingSnapshotter struct {
	calls    [][]uint
	products map[uint]models.ProductSnapshot
}

func (r *recordingSnapshotter) Snapshots(_ context.Context, ids []uint) (map[uint]models.ProductSnapshot, error) {
	r.calls = append(r.calls, append([]uint(nil), ids...))
	out := make(map[uint]models.ProductSnapshot, len(ids))
	for _, id := range ids {
		if snapshot, ok := r.products[id]; ok {
			out[id] = snapshot
		}
	}
	return out, nil
}

func TestHierarchyUsesInjectedProductSnapshotter(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	snapshots := &recordingSnapshotter{products: map[uint]models.ProductSnapshot{
		42: {ID: 42, Name: "Ergo", SKU: "ERG-42"},
		43: {ID: 43, Name: "Stool", SKU: "STL-43"},
	}}
	svc, err := NewHierarchyService(db, newTestStore(t), models.KindCategory, WithProductSnapshotter(snapshots))
	require.NoError(t, err)
	ctx := context.Background()

	root, err := svc.Create(ctx, NodeInput{
		Name:     strPtr("Chairs"),
		StatusID: activeStatus(),
		Grid:     &[]GridItemInput{{Type: models.GridProduct, Props: map[string]any{"product_id": 42}}},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NodeInput{
		Name:     strPtr("Stools"),
		StatusID: activeStatus(),
		Parent:   OptionalID{Set: true, ID: &root.ID},
		Grid:     &[]GridItemInput{{Type: models.GridProduct, Props: map[string]any{"product_id": 43}}},
	})
	require.NoError(t, err)

	snapshots.calls = nil
	tree, err := svc.Get(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, snapshots.calls, 1)
	require.ElementsMatch(t, []uint{42, 43}, snapshots.calls[0])
	require.Equal(t, "ERG-42", tree.Grid[0].ProductInfo.SKU)
	require.Equal(t, "STL-43", tree.childList()[0].Grid[0].ProductInfo.SKU)

	var stored models.TreeNode
	require.NoError(t, db.First(&stored, root.ID).Error)
	require.Nil(t, stored.Grid[0].ProductInfo)
}

func TestMergeGridStripsProductInfo(t *testing.T) {
	store := newTestStore(t)
	batch := newAssetBatch(store, zap.NewNop())
	snapshot := &models.ProductSnapshot{ID: 1, SKU: "ERG-1"}
	existing := []models.GridItem{{ID: "cell", Type: models.GridProduct, Props: map[string]any{"product_id": 1}, ProductInfo: snapshot}}

	merged, err := mergeGrid(context.Background(), batch, "categories", existing, []GridItemInput{{ID: "cell", File: Keep()}})
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Equal(t, "cell", merged[0].ID)
	require.Equal(t, models.GridProduct, merged[0].Type)
	require.Nil(t, merged[0].ProductInfo)
	require.Same(t, snapshot, existing[0].ProductInfo)
}

func TestHierarchyGridProductReferenceToDeletedProduct(t *testing.T) {
	svc, db, _ := newTestHierarchy(t, models.KindCategory)
	ctx := context.Background()

	product := models.Product{Name: "Gone", SKU: "GONE", StatusID: models.StatusActive}
	require.NoError(t, db.Create(&product).Error)
	created, err := svc.Create(ctx, NodeInput{
		Name:     strPtr("Chairs"),
		StatusID: activeStatus(),
		Grid:     &[]GridItemInput{{Type: models.GridProduct, Props: map[string]any{"product_id": product.ID}}},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Grid[0].ProductInfo)

	require.NoError(t, db.Delete(&models.Product{}, product.ID).Error)

	updated, err := svc.Update(ctx, created.ID, NodeInput{Grid: &[]GridItemInput{
		{ID: created.Grid[0].ID, Props: map[string]any{"product_id": product.ID}},
	}})
	require.NoError(t, err)
	require.Nil(t, updated.Grid[0].ProductInfo)
}

func TestHierarchyDeleteCascadesValuesAndFiles(t *testing.T) {
	svc, db, store := newTestHierarchy(t, models.KindMaterial)
	ctx := context.Background()

	wood, err := svc.Create(ctx, NodeInput{
		Name:     strPtr("Wood"),
		StatusID: activeStatus(),
		Img:      upload("wood.png", "w"),
		Grid:     &[]GridItemInput{{Type: models.GridImage, File: upload("grain.jpg", "g")}},
		Values:   &[]LeafValueInput{{Name: "Oak", Img: upload("oak.png", "o")}},
	})
	require.NoError(t, err)
	child := createNode(t, svc, "Hardwood", &wood.ID)

	paths := wood.AssetPaths()
	require.Len(t, paths, 3)
	for _, p := range paths {
		requireExists(t, store, p, true)
	}

	require.NoError(t, svc.Delete(ctx, wood.ID))

	for _, p := range paths {
		requireExists(t, store, p, false)
	}
	var count int64
	require.NoError(t, db.Model(&models.LeafValue{}).Count(&count).Error)
	require.Zero(t, count)

	reparented, err := svc.Get(ctx, child.ID)
	require.NoError(t, err)
	require.Nil(t, reparented.ParentID)

	_, err = svc.Get(ctx, wood.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, wood.ID), apperrors.ErrNotFound)
}

func TestHierarchyKindsAreIsolated(t *testing.T) {
	categories, db, store := newTestHierarchy(t, models.KindCategory)
	attributes, err := NewHierarchyService(db, store, models.KindAttribute)
	require.NoError(t, err)

	node := createNode(t, categories, "Chairs", nil)
	_, err = attributes.Get(context.Background(), node.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
