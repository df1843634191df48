package engine_test

import (
	"fmt"
	"testing"
	"time"

	"task-tracker/internal/database"
	"task-tracker/internal/engine"
	"task-tracker/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// одна физическая коннекция, иначе каждая получит свою :memory:
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// стандартный проект: создатель, лидер, два разработчика, наблюдатель
type fixture struct {
	db  *gorm.DB
	eng *engine.Engine

	admin    models.User
	creator  models.User
	leader   models.User
	dev      models.User
	dev2     models.User
	observer models.User

	project models.Project
	board   models.Board
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openDB(t)

	f := &fixture{db: db, eng: engine.New(db)}

	f.admin = f.user(t, "admin", models.RoleAdmin)
	f.creator = f.user(t, "creator", models.RoleLeader)
	f.leader = f.user(t, "leader", models.RoleLeader)
	f.dev = f.user(t, "dev", models.RoleMember)
	f.dev2 = f.user(t, "dev2", models.RoleMember)
	f.observer = f.user(t, "observer", models.RoleMember)

	f.project = models.Project{Title: "Проект", CreatedBy: f.creator.ID}
	require.NoError(t, db.Create(&f.project).Error)

	f.member(t, f.leader, models.ProjectRoleLeader)
	f.member(t, f.dev, models.ProjectRoleDeveloper)
	f.member(t, f.dev2, models.ProjectRoleDeveloper)
	f.member(t, f.observer, models.ProjectRoleObserver)

	f.board = models.Board{ProjectID: f.project.ID, Title: "Основная"}
	require.NoError(t, db.Create(&f.board).Error)

	return f
}

func (f *fixture) user(t *testing.T, name string, role models.GlobalRole) models.User {
	t.Helper()
	u := models.User{Username: name, DisplayName: name, PasswordHash: "x", Role: role}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) member(t *testing.T, u models.User, role models.ProjectRole) models.ProjectMember {
	t.Helper()
	m := models.ProjectMember{ProjectID: f.project.ID, UserID: u.ID, Role: role}
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

func (f *fixture) card(t *testing.T, title string) models.Card {
	t.Helper()
	c := models.Card{
		BoardID:   f.board.ID,
		Title:     title,
		Priority:  models.PriorityMedium,
		Status:    models.StatusTodo,
		CreatedBy: f.creator.ID,
	}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) reloadCard(t *testing.T, id uint) models.Card {
	t.Helper()
	var c models.Card
	require.NoError(t, f.db.First(&c, id).Error)
	return c
}

func (f *fixture) activeAssignments(t *testing.T, cardID uint) []models.CardAssignment {
	t.Helper()
	var rows []models.CardAssignment
	require.NoError(t, f.db.
		Where("card_id = ? AND is_active = ?", cardID, true).
		Find(&rows).Error)
	return rows
}

func (f *fixture) openTimer(t *testing.T, u models.User, cardID uint, startedAgo time.Duration) models.TimeLog {
	t.Helper()
	row := models.TimeLog{CardID: cardID, UserID: u.ID, StartTime: time.Now().Add(-startedAgo)}
	require.NoError(t, f.db.Create(&row).Error)
	return row
}

func requireEngineCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	e, ok := engine.AsEngineError(err)
	require.True(t, ok, "ожидалась ошибка движка, получено: %v", err)
	require.Equal(t, code, e.Code)
}

// проверка зеркала: Card.AssigneeID совпадает с активным назначением или оба пусты
func requireAssigneeMirror(t *testing.T, f *fixture, cardID uint) {
	t.Helper()
	c := f.reloadCard(t, cardID)
	active := f.activeAssignments(t, cardID)

	if c.AssigneeID == nil {
		require.Empty(t, active)
		return
	}
	require.Len(t, active, 1)
	require.Equal(t, *c.AssigneeID, active[0].AssignedTo,
		fmt.Sprintf("карточка %d: assignee_id разъехался с историей", cardID))
}
