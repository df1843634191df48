package engine

import (
	"errors"

	"task-tracker/internal/models"
)

// Kind — класс ошибки, по нему хендлер выбирает HTTP-статус.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindState         Kind = "state"
)

// Error — ошибка движка со стабильным кодом и деталями для клиента.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// BlockingCard — карточка, мешающая назначению (для assignee_has_unfinished_work).
type BlockingCard struct {
	ID     uint              `json:"id"`
	Title  string            `json:"title"`
	Status models.CardStatus `json:"status"`
}

func errNotAuthorized() *Error {
	return &Error{Kind: KindAuthorization, Code: "not_authorized", Message: "Недостаточно прав"}
}

func errCardNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: "card_not_found", Message: "Карточка не найдена"}
}

func errAssigneeNotMember() *Error {
	return &Error{Kind: KindValidation, Code: "assignee_not_member", Message: "Исполнитель не является участником проекта"}
}

func errAssigneeIsObserver() *Error {
	return &Error{Kind: KindValidation, Code: "assignee_is_observer", Message: "Наблюдателю нельзя назначать карточки"}
}

func errUnfinishedWork(blocking []BlockingCard) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    "assignee_has_unfinished_work",
		Message: "У исполнителя уже есть незакрытая карточка в этом проекте",
		Details: blocking,
	}
}

func errNoTimeLogged() *Error {
	return &Error{Kind: KindState, Code: "no_time_logged", Message: "Нельзя закрыть карточку без ни одной рабочей сессии"}
}

func errAssigneeAlreadyActive() *Error {
	return &Error{Kind: KindConflict, Code: "assignee_already_active", Message: "У исполнителя уже есть карточка в работе"}
}

func errActiveTimerExists() *Error {
	return &Error{Kind: KindConflict, Code: "active_timer_exists", Message: "У вас уже запущен таймер"}
}

func errCardAlreadyDone() *Error {
	return &Error{Kind: KindState, Code: "card_already_done", Message: "Карточка уже закрыта"}
}

func errNotAProjectMember() *Error {
	return &Error{Kind: KindAuthorization, Code: "not_a_project_member", Message: "Вы не участник проекта"}
}

func errAnotherCardInProgress() *Error {
	return &Error{Kind: KindConflict, Code: "another_card_in_progress", Message: "У вас уже есть карточка в работе в этом проекте"}
}

func errAnotherCardAssigned() *Error {
	return &Error{Kind: KindConflict, Code: "another_card_assigned", Message: "За вами уже закреплена другая карточка в этом проекте"}
}

func errTimeLogNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: "timelog_not_found", Message: "Рабочая сессия не найдена"}
}

func errNotOwner() *Error {
	return &Error{Kind: KindAuthorization, Code: "not_owner", Message: "Чужую сессию останавливать нельзя"}
}

func errAlreadyStopped() *Error {
	return &Error{Kind: KindState, Code: "already_stopped", Message: "Сессия уже остановлена"}
}

func errNotAssignee() *Error {
	return &Error{Kind: KindAuthorization, Code: "not_assignee", Message: "Запросить сверхурочные может только исполнитель карточки"}
}

func errNoDeadline() *Error {
	return &Error{Kind: KindValidation, Code: "no_deadline", Message: "У карточки нет дедлайна"}
}

func errNotOverdue() *Error {
	return &Error{Kind: KindValidation, Code: "not_overdue", Message: "Дедлайн карточки ещё не прошёл"}
}

func errDuplicatePending() *Error {
	return &Error{Kind: KindConflict, Code: "duplicate_pending", Message: "Запрос по этой карточке уже ждёт решения"}
}

func errApprovalNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: "approval_not_found", Message: "Запрос не найден"}
}

func errAlreadyResolved() *Error {
	return &Error{Kind: KindConflict, Code: "already_resolved", Message: "Запрос уже рассмотрен"}
}

func errValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: msg}
}

// AsEngineError достаёт *Error из цепочки (gorm заворачивает ошибки транзакций).
func AsEngineError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
