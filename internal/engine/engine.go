package engine

import (
	"errors"
	"time"

	"task-tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine выполняет все мутации, завязанные на инварианты: каждая операция —
// одна транзакция, внутри которой и проверки, и записи.
type Engine struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// FOR UPDATE понимает только постгрес; sqlite в тестах сериализует писателей сам
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockUser берёт блокировку на строке пользователя перед проверками
// пользовательских инвариантов ("один открытый таймер", "одна незакрытая
// карточка"). Блокировки карточки мало: два параллельных запроса по разным
// карточкам берут разные строки и оба успевают прочитать состояние до вставок
// друг друга.
func lockUser(tx *gorm.DB, userID uint) error {
	var u models.User
	return LockForUpdate(tx).First(&u, userID).Error
}

// карточка + её доска, строка карточки под блокировкой
func loadCardForUpdate(tx *gorm.DB, cardID uint) (*models.Card, *models.Board, error) {
	var card models.Card
	if err := LockForUpdate(tx).First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errCardNotFound()
		}
		return nil, nil, err
	}

	var board models.Board
	if err := tx.First(&board, card.BoardID).Error; err != nil {
		return nil, nil, err
	}
	return &card, &board, nil
}

func findMember(tx *gorm.DB, projectID, userID uint) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// карточки, из-за которых пользователю нельзя дать новую работу:
// активные назначения на незакрытые карточки проекта, кроме текущей
func unfinishedCards(tx *gorm.DB, projectID, userID, exceptCardID uint) ([]BlockingCard, error) {
	var rows []models.CardAssignment
	if err := tx.Preload("Card.Board").
		Where("assigned_to = ? AND is_active = ?", userID, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	var blocking []BlockingCard
	for _, a := range rows {
		c := a.Card
		if c.ID == 0 || c.ID == exceptCardID {
			continue
		}
		if c.Board.ProjectID != projectID {
			continue
		}
		if c.Status == models.StatusDone {
			continue
		}
		blocking = append(blocking, BlockingCard{ID: c.ID, Title: c.Title, Status: c.Status})
	}
	return blocking, nil
}

// есть ли у пользователя другая карточка IN_PROGRESS в этом проекте
func hasCardInProgress(tx *gorm.DB, projectID, userID, exceptCardID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Card{}).
		Joins("JOIN boards ON boards.id = cards.board_id").
		Where("boards.project_id = ? AND cards.assignee_id = ? AND cards.status = ? AND cards.id <> ?",
			projectID, userID, models.StatusInProgress, exceptCardID).
		Count(&count).Error
	return count > 0, err
}

// активные назначения пользователя на другие карточки проекта (любой статус)
func hasOtherAssignment(tx *gorm.DB, projectID, userID, exceptCardID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.CardAssignment{}).
		Joins("JOIN cards ON cards.id = card_assignments.card_id").
		Joins("JOIN boards ON boards.id = cards.board_id").
		Where("card_assignments.assigned_to = ? AND card_assignments.is_active = ? AND boards.project_id = ? AND card_assignments.card_id <> ?",
			userID, true, projectID, exceptCardID).
		Count(&count).Error
	return count > 0, err
}

// applyAssignment — единственное место, где меняются строки CardAssignment
// и Card.AssigneeID, чтобы денормализованный указатель не разъезжался с историей.
// Сохранение самой карточки остаётся на вызывающем.
func applyAssignment(tx *gorm.DB, card *models.Card, assigneeID *uint, actorID, memberID uint, reason string) error {
	now := time.Now()

	// деактивируем ВСЕ активные строки, а не первую попавшуюся:
	// старая реализация оставляла висячие активные записи
	if err := tx.Model(&models.CardAssignment{}).
		Where("card_id = ? AND is_active = ?", card.ID, true).
		Updates(map[string]any{"is_active": false, "unassigned_at": now}).Error; err != nil {
		return err
	}

	if assigneeID != nil {
		a := models.CardAssignment{
			CardID:          card.ID,
			AssignedTo:      *assigneeID,
			AssignedBy:      actorID,
			ProjectMemberID: memberID,
			Reason:          reason,
			IsActive:        true,
			AssignedAt:      now,
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
	}

	card.AssigneeID = assigneeID
	return nil
}

// лидеры проекта + создатель, без дублей и без excluded
func approverIDs(tx *gorm.DB, project *models.Project, exclude uint) ([]uint, error) {
	var leaders []models.ProjectMember
	if err := tx.Where("project_id = ? AND role = ?", project.ID, models.ProjectRoleLeader).
		Find(&leaders).Error; err != nil {
		return nil, err
	}

	seen := map[uint]struct{}{}
	var ids []uint
	add := func(id uint) {
		if id == exclude || id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(project.CreatedBy)
	for _, m := range leaders {
		add(m.UserID)
	}
	return ids, nil
}
