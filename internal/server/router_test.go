package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"task-tracker/internal/config"
	"task-tracker/internal/database"
	"task-tracker/internal/events"
	"task-tracker/internal/handlers"
	"task-tracker/internal/models"
	"task-tracker/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T) (*gin.Engine, *events.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	database.DB = db
	rec := &events.Recorder{}
	handlers.Init(db, rec, "testsecret")

	cfg := &config.Config{SessionSecret: "session-secret", JWTSecret: "testsecret"}
	return server.NewRouter(cfg), rec
}

func do(t *testing.T, r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func idOf(t *testing.T, m map[string]any) string {
	t.Helper()
	id, ok := m["ID"].(float64)
	require.True(t, ok, "в ответе нет ID: %v", m)
	return strconv.Itoa(int(id))
}

func TestAPIFlow(t *testing.T) {
	r, rec := setupRouter(t)

	// регистрация и вход за лидера
	w := do(t, r, "POST", "/api/register", `{"username":"lead","password":"secret1","role":"LEADER"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, "POST", "/api/register", `{"username":"dev","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	devID := idOf(t, decode(t, w))

	w = do(t, r, "POST", "/api/login", `{"username":"lead","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	leadToken, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, leadToken)

	w = do(t, r, "POST", "/api/login", `{"username":"dev","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	devToken, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, devToken)

	// без входа API закрыт
	w = do(t, r, "GET", "/api/projects", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// проект -> участник -> доска -> карточка
	w = do(t, r, "POST", "/api/projects", `{"title":"Запуск"}`, leadToken)
	require.Equal(t, http.StatusCreated, w.Code)
	projectID := idOf(t, decode(t, w))

	w = do(t, r, "POST", "/api/projects/"+projectID+"/members",
		`{"user_id":`+devID+`,"role":"DEVELOPER"}`, leadToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, "POST", "/api/projects/"+projectID+"/boards", `{"title":"Бэклог"}`, leadToken)
	require.Equal(t, http.StatusCreated, w.Code)
	boardID := idOf(t, decode(t, w))

	w = do(t, r, "POST", "/api/boards/"+boardID+"/cards",
		`{"title":"Собрать прототип","priority":"HIGH"}`, leadToken)
	require.Equal(t, http.StatusCreated, w.Code)
	cardID := idOf(t, decode(t, w))

	// неизвестный приоритет валится на биндинге
	w = do(t, r, "POST", "/api/boards/"+boardID+"/cards",
		`{"title":"Карточка","priority":"URGENT"}`, leadToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// назначение и таймер
	w = do(t, r, "POST", "/api/cards/"+cardID+"/assign",
		`{"assignee_id":`+devID+`,"reason":"старт"}`, leadToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, "POST", "/api/cards/"+cardID+"/timer/start", "", devToken)
	require.Equal(t, http.StatusCreated, w.Code)
	logID := idOf(t, decode(t, w))

	w = do(t, r, "GET", "/api/cards/"+cardID, "", devToken)
	require.Equal(t, http.StatusOK, w.Code)
	card, _ := decode(t, w)["card"].(map[string]any)
	require.Equal(t, "IN_PROGRESS", card["status"])

	w = do(t, r, "POST", "/api/timelogs/"+logID+"/stop", "", devToken)
	require.Equal(t, http.StatusOK, w.Code)

	// закрытие карточки: время учтено, значит можно
	w = do(t, r, "PATCH", "/api/cards/"+cardID, `{"status":"DONE"}`, leadToken)
	require.Equal(t, http.StatusOK, w.Code)

	// без единой записи времени закрыть нельзя
	w = do(t, r, "POST", "/api/boards/"+boardID+"/cards", `{"title":"Пустая"}`, leadToken)
	require.Equal(t, http.StatusCreated, w.Code)
	emptyID := idOf(t, decode(t, w))
	w = do(t, r, "PATCH", "/api/cards/"+emptyID, `{"status":"DONE"}`, leadToken)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "no_time_logged", decode(t, w)["code"])

	// события публикуются после коммита из отдельной горутины
	require.Eventually(t, func() bool {
		return len(rec.Recorded()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	// журнал аудита закрыт для не-админа
	w = do(t, r, "GET", "/api/audit", "", leadToken)
	require.Equal(t, http.StatusForbidden, w.Code)
}

// имя из одних пробелов вокруг короткого ядра не проходит:
// длина проверяется после обрезки, а не на сыром значении
func TestRegisterRejectsPaddedUsername(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, "POST", "/api/register", `{"username":"  a  ","password":"secret1"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "validation_failed", decode(t, w)["code"])

	// ведущие/замыкающие пробелы у нормального имени просто срезаются
	w = do(t, r, "POST", "/api/register", `{"username":"  norm  ","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "norm", decode(t, w)["username"])
}

// отказ запроса списка — это 500 с кодом, а не тихий пустой ответ
func TestListQueryErrorsReturnInternal(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, "POST", "/api/register", `{"username":"root","password":"secret1","role":"LEADER"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, database.DB.Model(&models.User{}).
		Where("username = ?", "root").Update("role", models.RoleAdmin).Error)

	w = do(t, r, "POST", "/api/login", `{"username":"root","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w)["token"].(string)

	card := models.Card{BoardID: 1, Title: "Карточка", Priority: models.PriorityMedium,
		Status: models.StatusTodo, CreatedBy: 1}
	require.NoError(t, database.DB.Create(&card).Error)

	require.NoError(t, database.DB.Migrator().DropTable(&models.CardAssignment{}))
	w = do(t, r, "GET", "/api/cards/"+strconv.Itoa(int(card.ID)), "", token)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal", decode(t, w)["code"])

	require.NoError(t, database.DB.Migrator().DropTable(&models.AuditLog{}))
	w = do(t, r, "GET", "/api/audit", "", token)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal", decode(t, w)["code"])
}
