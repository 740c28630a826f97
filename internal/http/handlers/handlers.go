package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/morozovkp/go-taskboard/internal/service"
)

// Handlers агрегирует зависимости HTTP-слоя.
// Здесь выполняется только маппинг данных и ошибок доменного слоя (service)
// в HTTP; вся валидация и бизнес-логика находятся в пакете service.
type Handlers struct {
	service   *service.Service
	publicPEM []byte
}

// New создаёт обработчики поверх сервисного слоя.
// publicPEM — публичный ключ выпускающего процесса для раздачи верификаторам.
func New(svc *service.Service, publicPEM []byte) *Handlers {
	return &Handlers{service: svc, publicPEM: publicPEM}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
