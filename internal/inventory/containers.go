package inventory

import (
	"sort"

	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// NewContainer describes a container to create. A nil Order places it after
// every existing container.
type NewContainer struct {
	Title string
	Order *int
}

// ContainerUpdate carries optional container changes.
type ContainerUpdate struct {
	Title *string
	Order *int
}

// SortedContainers returns containers by display order, ties broken by id.
func (s *Snapshot) SortedContainers() []*Container {
	out := make([]*Container, 0, len(s.Containers))
	for _, c := range s.Containers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Snapshot) container(id string) (*Container, error) {
	c, ok := s.Containers[id]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "container %s not found", id)
	}
	return c, nil
}

func (c *Container) drawer(id string) (*ContainerDrawer, error) {
	d, ok := c.Drawers[id]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "drawer %s not found in container %s", id, c.ID)
	}
	return d, nil
}

// AddContainer creates an empty container.
func (s *Snapshot) AddContainer(in NewContainer) (*Container, error) {
	title, err := cleanName(in.Title)
	if err != nil {
		return nil, err
	}
	order := 0
	if in.Order != nil {
		order = *in.Order
	} else {
		for _, c := range s.Containers {
			if c.Order+1 > order {
				order = c.Order + 1
			}
		}
	}
	if s.Containers == nil {
		s.Containers = map[string]*Container{}
	}
	c := &Container{
		ID:          NewContainerID(),
		Title:       title,
		Order:       order,
		Drawers:     map[string]*ContainerDrawer{},
		DrawerOrder: []string{},
	}
	s.Containers[c.ID] = c
	return c, nil
}

// UpdateContainer applies title and order changes.
func (s *Snapshot) UpdateContainer(id string, update ContainerUpdate) (*Container, error) {
	c, err := s.container(id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		title, err := cleanName(*update.Title)
		if err != nil {
			return nil, err
		}
		c.Title = title
	}
	if update.Order != nil {
		c.Order = *update.Order
	}
	return c, nil
}

// DeleteContainer removes a container that owns no drawers.
func (s *Snapshot) DeleteContainer(id string) error {
	c, err := s.container(id)
	if err != nil {
		return err
	}
	if len(c.Drawers) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "container %s still has %d drawers", id, len(c.Drawers))
	}
	delete(s.Containers, id)
	return nil
}

// AddDrawer appends an empty drawer to the container.
func (s *Snapshot) AddDrawer(containerID, name string) (*ContainerDrawer, error) {
	c, err := s.container(containerID)
	if err != nil {
		return nil, err
	}
	name, err = cleanName(name)
	if err != nil {
		return nil, err
	}
	d := &ContainerDrawer{ID: NewDrawerID(), Name: name, Items: []Item{}}
	c.Drawers[d.ID] = d
	c.DrawerOrder = append(c.DrawerOrder, d.ID)
	return d, nil
}

// UpdateDrawer renames a drawer.
func (s *Snapshot) UpdateDrawer(containerID, drawerID, name string) (*ContainerDrawer, error) {
	c, err := s.container(containerID)
	if err != nil {
		return nil, err
	}
	d, err := c.drawer(drawerID)
	if err != nil {
		return nil, err
	}
	name, err = cleanName(name)
	if err != nil {
		return nil, err
	}
	d.Name = name
	return d, nil
}

// DeleteDrawer removes an empty drawer and its drawerOrder entry.
func (s *Snapshot) DeleteDrawer(containerID, drawerID string) error {
	c, err := s.container(containerID)
	if err != nil {
		return err
	}
	d, err := c.drawer(drawerID)
	if err != nil {
		return err
	}
	if len(d.Items) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "drawer %s still holds %d items", drawerID, len(d.Items))
	}
	delete(c.Drawers, drawerID)
	order := make([]string, 0, len(c.DrawerOrder))
	for _, id := range c.DrawerOrder {
		if id != drawerID {
			order = append(order, id)
		}
	}
	c.DrawerOrder = order
	return nil
}

// ReorderDrawers replaces drawerOrder; order must be a permutation of the
// container's drawer ids.
func (s *Snapshot) ReorderDrawers(containerID string, order []string) error {
	c, err := s.container(containerID)
	if err != nil {
		return err
	}
	candidate := &Container{Drawers: c.Drawers, DrawerOrder: order}
	if !candidate.OrderConsistent() {
		return pkgerrors.New(pkgerrors.CodeValidation, "drawer order must list every drawer of the container exactly once")
	}
	c.DrawerOrder = append([]string{}, order...)
	return nil
}
