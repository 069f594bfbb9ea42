package store

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	user := models.User{Username: username, Password: passwordHash}
	err := s.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.User{}, ErrUsernameTaken
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByName(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if notFound(err) {
		return models.User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
	}
	return user, err
}

// LookupUser 返回用户的展示信息
func (s *Store) LookupUser(ctx context.Context, id models.UserID) (models.Profile, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id, username, avatar").First(&user, uint(id)).Error
	if notFound(err) {
		return models.Profile{}, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, err
	}
	return s.profileOf(user), nil
}

func (s *Store) profiles(ctx context.Context, ids []uint) (map[models.UserID]models.Profile, error) {
	out := make(map[models.UserID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Select("id, username, avatar").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[models.UserID(u.ID)] = s.profileOf(u)
	}
	return out, nil
}

func (s *Store) profileOf(u models.User) models.Profile {
	return models.Profile{ID: models.UserID(u.ID), Name: u.Username, Avatar: s.avatarURL(u.Avatar)}
}

func (s *Store) UserByID(ctx context.Context, id models.UserID) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, uint(id)).Error
	if notFound(err) {
		return models.User{}, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	return user, err
}

func (s *Store) SetPassword(ctx context.Context, id models.UserID, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uint(id)).Update("password", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
