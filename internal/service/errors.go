package service

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/hotelbooking-system/internal/repository"
)

var (
	// ErrEmptyCart возвращается при оплате пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrForbidden возвращается при попытке изменить чужой заказ.
	ErrForbidden = errors.New("operation is not allowed for this member")
	// ErrInvalidStay возвращается при некорректном интервале проживания.
	ErrInvalidStay = errors.New("invalid stay dates")
	// ErrInvalidMember возвращается при некорректных регистрационных данных.
	ErrInvalidMember = errors.New("invalid member data")
	// ErrInvalidRoom возвращается при некорректных данных номера.
	ErrInvalidRoom = errors.New("invalid room data")
	// ErrInvalidCredentials возвращается при неверной паре e-mail и пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// InfrastructureError описывает сбой хранилища или другой инфраструктуры,
// не связанный с ошибкой в запросе клиента.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

var businessErrors = []error{
	repository.ErrMemberExists,
	repository.ErrMemberNotFound,
	repository.ErrRoomNotFound,
	repository.ErrOrderNotFound,
	repository.ErrRoomUnavailable,
	repository.ErrOrderAlreadyCancelled,
	repository.ErrOrderPaid,
	ErrEmptyCart,
	ErrForbidden,
	ErrInvalidStay,
	ErrInvalidMember,
	ErrInvalidRoom,
	ErrInvalidCredentials,
}

// IsBusinessError сообщает, является ли ошибка нарушением бизнес-правила.
func IsBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify оставляет бизнес-ошибки как есть, остальные оборачивает в InfrastructureError.
func classify(op string, err error) error {
	if err == nil || IsBusinessError(err) {
		return err
	}
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}
