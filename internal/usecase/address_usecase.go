package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodcart/internal/domain/model"
	repo "foodcart/internal/repository"
)

type AddressDTO struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Street    string  `json:"street"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Landmark  string  `json:"landmark,omitempty"`
	Pincode   string  `json:"pincode"`
	IsDefault bool    `json:"is_default"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

type AddressInput struct {
	Street   string
	City     string
	State    string
	Landmark string
	Pincode  string
}

type AddressUsecase struct {
	addresses repo.AddressRepository
	now       func() time.Time
}

func NewAddressUsecase(addresses repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses, now: time.Now}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, errUnauthorized()
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, errStore(err)
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, in AddressInput) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, errUnauthorized()
	}
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return AddressDTO{}, err
	}

	now := u.now()
	created, err := u.addresses.Create(ctx, model.Address{
		UserID:    userID,
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		Landmark:  in.Landmark,
		Pincode:   in.Pincode,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return AddressDTO{}, errStore(err)
	}
	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID, addressID int64, in AddressInput) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return err
	}

	err := u.addresses.Update(ctx, model.Address{
		ID:        addressID,
		UserID:    userID,
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		Landmark:  in.Landmark,
		Pincode:   in.Pincode,
		UpdatedAt: u.now(),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("address")
	}
	if err != nil {
		return errStore(err)
	}
	return nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID, addressID int64) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}

	err := u.addresses.Delete(ctx, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("address")
	}
	if err != nil {
		return errStore(err)
	}
	return nil
}

// SetDefault makes the address the shopper's only default.
func (u *AddressUsecase) SetDefault(ctx context.Context, userID, addressID int64) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}

	err := u.addresses.SetDefault(ctx, userID, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("address")
	}
	if err != nil {
		return errStore(err)
	}
	return nil
}

func (u *AddressUsecase) checkOwner(ctx context.Context, userID, addressID int64) error {
	if userID <= 0 {
		return errUnauthorized()
	}
	if addressID <= 0 {
		return errValidation("invalid id")
	}

	owned, err := u.addresses.IsOwnedByUser(ctx, addressID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("address")
	}
	if err != nil {
		return errStore(err)
	}
	// missing and foreign addresses look the same
	if !owned {
		return errNotFound("address")
	}
	return nil
}

func (in AddressInput) trimmed() AddressInput {
	return AddressInput{
		Street:   strings.TrimSpace(in.Street),
		City:     strings.TrimSpace(in.City),
		State:    strings.TrimSpace(in.State),
		Landmark: strings.TrimSpace(in.Landmark),
		Pincode:  strings.TrimSpace(in.Pincode),
	}
}

func (in AddressInput) validate() error {
	if in.Street == "" || in.City == "" || in.State == "" || in.Pincode == "" {
		return errValidation("street, city, state and pincode are required")
	}
	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		Landmark:  a.Landmark,
		Pincode:   a.Pincode,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt.Format(time.RFC3339)
		dto.UpdatedAt = &t
	}
	return dto
}
