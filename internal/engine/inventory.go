package engine

import (
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Inventories returns the inventories of the repository that owns the tree
// root. A root that no repository lists gets none.
func Inventories(defs *model.Definitions, rootKey string) []model.Inventory {
	if defs == nil {
		return nil
	}
	for _, o := range defs.Repositories.Items() {
		repo, ok := o.(*model.Repository)
		if !ok {
			continue
		}
		if repo.Owns(rootKey) {
			return repo.Inventories
		}
	}
	return nil
}
