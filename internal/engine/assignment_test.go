package engine_test

import (
	"sync"
	"testing"

	"task-tracker/internal/engine"
	"task-tracker/internal/events"
	"task-tracker/internal/models"

	"github.com/stretchr/testify/require"
)

// гонка двух назначений одного исполнителя на разные карточки: проверка
// "нет другой незакрытой карточки" идёт под блокировкой строки исполнителя,
// поэтому вторая транзакция обязана увидеть вставку первой
func TestAssignConcurrentSecondBlocked(t *testing.T) {
	f := newFixture(t)
	a := f.card(t, "Первая")
	b := f.card(t, "Вторая")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, cardID := range []uint{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, cardID uint) {
			defer wg.Done()
			_, _, errs[i] = f.eng.Assign(engine.AssignInput{CardID: cardID, AssigneeID: &f.dev.ID}, f.leader)
		}(i, cardID)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	require.Len(t, failed, 1)
	requireEngineCode(t, failed[0], "assignee_has_unfinished_work")

	// у dev ровно одно активное назначение, неважно какая карточка победила
	var active int64
	require.NoError(t, f.db.Model(&models.CardAssignment{}).
		Where("assigned_to = ? AND is_active = ?", f.dev.ID, true).
		Count(&active).Error)
	require.EqualValues(t, 1, active)
}

func TestAssignByLeader(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка X")

	card, outs, err := f.eng.Assign(engine.AssignInput{
		CardID:     c.ID,
		AssigneeID: &f.dev.ID,
		Reason:     "стартуем",
	}, f.leader)
	require.NoError(t, err)

	require.NotNil(t, card.AssigneeID)
	require.Equal(t, f.dev.ID, *card.AssigneeID)
	requireAssigneeMirror(t, f, c.ID)

	active := f.activeAssignments(t, c.ID)
	require.Len(t, active, 1)
	require.Equal(t, f.leader.ID, active[0].AssignedBy)
	require.Equal(t, "стартуем", active[0].Reason)

	// card:assigned на канал карточки + card:updated на канал проекта
	var names []string
	for _, o := range outs {
		names = append(names, string(o.Channel)+"/"+o.Event)
	}
	require.Contains(t, names, "card/"+events.EventCardAssigned)
	require.Contains(t, names, "project/"+events.EventCardUpdated)
}

func TestAssignRequiresAuthority(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev2.ID}, f.dev)
	requireEngineCode(t, err, "not_authorized")

	// создатель проекта и админ могут, членство не обязательно
	_, _, err = f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.creator)
	require.NoError(t, err)
}

func TestAssignRejectsNonMember(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")
	stranger := f.user(t, "stranger", models.RoleMember)

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &stranger.ID}, f.leader)
	requireEngineCode(t, err, "assignee_not_member")
}

func TestAssignObserverOnlyByAdmin(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.observer.ID}, f.leader)
	requireEngineCode(t, err, "assignee_is_observer")

	_, _, err = f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.observer.ID}, f.admin)
	require.NoError(t, err)
}

// сценарий 1: у dev уже есть незакрытая карточка X — назначение на Y
// отклоняется со списком блокирующих карточек
func TestAssignBlockedByUnfinishedWork(t *testing.T) {
	f := newFixture(t)
	x := f.card(t, "Карточка X")
	y := f.card(t, "Карточка Y")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: x.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	_, _, err = f.eng.Assign(engine.AssignInput{CardID: y.ID, AssigneeID: &f.dev.ID}, f.leader)
	requireEngineCode(t, err, "assignee_has_unfinished_work")

	e, _ := engine.AsEngineError(err)
	blocking, ok := e.Details.([]engine.BlockingCard)
	require.True(t, ok)
	require.Len(t, blocking, 1)
	require.Equal(t, x.ID, blocking[0].ID)
	require.Equal(t, "Карточка X", blocking[0].Title)
}

func TestAssignAllowedWhenBlockerDone(t *testing.T) {
	f := newFixture(t)
	x := f.card(t, "X")
	y := f.card(t, "Y")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: x.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	// закрываем X — назначение остаётся активным, но статус DONE больше не блокирует
	require.NoError(t, f.db.Model(&models.Card{}).Where("id = ?", x.ID).
		Update("status", models.StatusDone).Error)

	_, _, err = f.eng.Assign(engine.AssignInput{CardID: y.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)
}

// повторное назначение того же человека: старая строка деактивируется,
// новая создаётся, активная ровно одна
func TestReassignSameUserIdempotentMirror(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)
	_, _, err = f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	active := f.activeAssignments(t, c.ID)
	require.Len(t, active, 1)

	var total int64
	require.NoError(t, f.db.Model(&models.CardAssignment{}).
		Where("card_id = ?", c.ID).Count(&total).Error)
	require.EqualValues(t, 2, total)

	var deactivated models.CardAssignment
	require.NoError(t, f.db.
		Where("card_id = ? AND is_active = ?", c.ID, false).
		First(&deactivated).Error)
	require.NotNil(t, deactivated.UnassignedAt)

	requireAssigneeMirror(t, f, c.ID)
}

// переназначение также деактивирует ВСЕ активные строки, даже если их
// из-за старого бага оказалось несколько
func TestAssignHealsStaleActiveRows(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")

	// имитируем испорченную историю: две активные строки
	for _, uid := range []uint{f.dev.ID, f.dev2.ID} {
		require.NoError(t, f.db.Create(&models.CardAssignment{
			CardID: c.ID, AssignedTo: uid, AssignedBy: f.leader.ID, IsActive: true,
		}).Error)
	}

	// чтобы dev2 не блокировал назначение, сама карточка исключается,
	// а другой незакрытой работы у dev нет
	require.NoError(t, f.db.Model(&models.CardAssignment{}).
		Where("card_id = ? AND assigned_to = ?", c.ID, f.dev2.ID).
		Update("assigned_to", f.dev.ID).Error)

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	require.Len(t, f.activeAssignments(t, c.ID), 1)
}

func TestUnassignClearsPointer(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	card, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: nil}, f.leader)
	require.NoError(t, err)
	require.Nil(t, card.AssigneeID)
	require.Empty(t, f.activeAssignments(t, c.ID))
}

// переназначение закрытой карточки открывает её заново
func TestReassignDoneCardReopens(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")
	require.NoError(t, f.db.Model(&models.Card{}).Where("id = ?", c.ID).
		Update("status", models.StatusDone).Error)

	card, _, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)
	require.Equal(t, models.StatusTodo, card.Status)
}

func TestAssignUnknownCard(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.eng.Assign(engine.AssignInput{CardID: 9999, AssigneeID: &f.dev.ID}, f.leader)
	requireEngineCode(t, err, "card_not_found")
}

// в завершённом проекте правило одной карточки ослаблено
func TestAssignRelaxedInCompletedProject(t *testing.T) {
	f := newFixture(t)
	x := f.card(t, "X")
	y := f.card(t, "Y")

	_, _, err := f.eng.Assign(engine.AssignInput{CardID: x.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Project{}).Where("id = ?", f.project.ID).
		Update("is_completed", true).Error)

	_, _, err = f.eng.Assign(engine.AssignInput{CardID: y.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)
}

func TestAssignNotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	c := f.card(t, "Карточка")

	_, outs, err := f.eng.Assign(engine.AssignInput{CardID: c.ID, AssigneeID: &f.dev.ID}, f.leader)
	require.NoError(t, err)

	var n models.Notification
	require.NoError(t, f.db.
		Where("recipient_id = ? AND kind = ?", f.dev.ID, models.NotifyCardAssigned).
		First(&n).Error)
	require.Equal(t, c.ID, n.CardID)

	found := false
	for _, o := range outs {
		if o.Channel == events.ChannelUser && o.Key == f.dev.ID {
			found = true
		}
	}
	require.True(t, found, "ожидалось событие в персональный канал исполнителя")
}
