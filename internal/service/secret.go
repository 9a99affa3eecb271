package service

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Составной refresh-секрет: "username:sessionID:createdAtUnix".
// Секрет в plaintext существует только в момент выдачи; в БД хранится
// исключительно его отпечаток. Таймстемп создания — единственная
// непредсказуемая компонента секрета (сохранено намеренно, см. DESIGN.md)
// и одновременно основа replay-окна при предъявлении.

// secretParts — распарсенные поля предъявленного секрета.
type secretParts struct {
	Username  string
	SessionID uuid.UUID
	CreatedAt int64 // unix seconds
}

// buildRefreshSecret собирает plaintext составного секрета.
func buildRefreshSecret(username string, sessionID uuid.UUID, createdAtUnix int64) string {
	return username + ":" + sessionID.String() + ":" + strconv.FormatInt(createdAtUnix, 10)
}

// parseRefreshSecret разбирает предъявленный секрет.
// Требования: ровно три поля через ':', второе — UUID, третье — целое число.
// Любое нарушение — ErrMalformedSecret.
func parseRefreshSecret(secret string) (secretParts, error) {
	const op = "service.secret.parseRefreshSecret"

	fields := strings.Split(secret, ":")
	if len(fields) != 3 {
		return secretParts{}, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	if fields[0] == "" {
		return secretParts{}, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	sessionID, err := uuid.Parse(fields[1])
	if err != nil {
		return secretParts{}, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	createdAt, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return secretParts{}, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	return secretParts{
		Username:  fields[0],
		SessionID: sessionID,
		CreatedAt: createdAt,
	}, nil
}

// fingerprintSecret считает односторонний отпечаток секрета (sha256 → base64url).
// Отпечаток фиксируется при создании сессии и неизменяем; при refresh он
// не пересчитывается и не сверяется — lookup идёт только по id сессии.
func fingerprintSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
