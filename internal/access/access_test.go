package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/and161185/notekeeper/internal/model"
)

func sharedNote() model.Note {
	return model.Note{
		ID:        "n1",
		CreatedBy: &model.UserRef{ID: "A"},
		Members: []model.Member{
			{User: model.UserRef{ID: "B"}, Role: model.RoleEditor, Status: model.StatusActive},
			{User: model.UserRef{ID: "V"}, Role: model.RoleViewer, Status: model.StatusActive},
			{User: model.UserRef{ID: "P"}, Role: model.RoleEditor, Status: model.StatusPending},
			{User: model.UserRef{ID: "R"}, Role: model.RoleEditor, Status: model.StatusRemoved},
		},
	}
}

func TestResolve_EditabilityGating(t *testing.T) {
	t.Parallel()
	n := sharedNote()

	assert.Equal(t, Capabilities{CanEdit: true, CanManageMembers: true}, Resolve("A", n))
	assert.Equal(t, Capabilities{CanEdit: true}, Resolve("B", n))
	assert.Equal(t, Capabilities{}, Resolve("C", n))
	assert.Equal(t, Capabilities{}, Resolve("V", n))
}

func TestResolve_StatusIsNotConsulted(t *testing.T) {
	t.Parallel()
	n := sharedNote()

	assert.True(t, Resolve("P", n).CanEdit)
	assert.True(t, Resolve("R", n).CanEdit)
	assert.False(t, Resolve("P", n).CanManageMembers)
}

func TestResolve_EmptyIdentityNeverMatches(t *testing.T) {
	t.Parallel()

	orphan := model.Note{ID: "n2"} // server omitted createdBy
	assert.Equal(t, Capabilities{}, Resolve("", orphan))
	assert.Equal(t, Capabilities{}, Resolve("  ", sharedNote()))
	assert.Equal(t, Capabilities{}, Resolve("A", orphan))
}

func TestRoleOf(t *testing.T) {
	t.Parallel()
	n := sharedNote()

	assert.Equal(t, "owner", RoleOf("A", n))
	assert.Equal(t, "editor", RoleOf("B", n))
	assert.Equal(t, "viewer", RoleOf("V", n))
	assert.Equal(t, "", RoleOf("C", n))
	assert.Equal(t, "", RoleOf("", n))
}

func TestActiveMembers(t *testing.T) {
	t.Parallel()

	got := ActiveMembers(sharedNote().Members)
	ids := []string{}
	for _, m := range got {
		ids = append(ids, m.User.ID)
	}
	assert.Equal(t, []string{"B", "V"}, ids)
}
