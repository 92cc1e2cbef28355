package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/brainwash-news/newsdesk/internal/models"
	"gorm.io/gorm"
)

// ContactInput is a message submitted through the contact form.
type ContactInput struct {
	Name    string `json:"name" form:"name" validate:"required,max=100"`
	Email   string `json:"email" form:"email" validate:"required,email,max=100"`
	Title   string `json:"title" form:"title" validate:"required,max=100"`
	Content string `json:"content" form:"content" validate:"required,max=250"`
}

// ContactService stores contact messages.
type ContactService struct {
	db *gorm.DB
}

// NewContactService creates a new ContactService.
func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

func (s *ContactService) List(ctx context.Context) ([]models.ContactMessage, error) {
	var msgs []models.ContactMessage
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *ContactService) Get(ctx context.Context, id uint) (*models.ContactMessage, error) {
	var msg models.ContactMessage
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// Create stores a message left by a visitor.
func (s *ContactService) Create(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}

	msg := models.ContactMessage{Name: in.Name, Email: in.Email, Title: in.Title, Content: in.Content}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("create contact message: %w", err)
	}
	return &msg, nil
}

func (s *ContactService) Update(ctx context.Context, id uint, in ContactInput) (*models.ContactMessage, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}

	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.Name, msg.Email, msg.Title, msg.Content = in.Name, in.Email, in.Title, in.Content
	if err := s.db.WithContext(ctx).Save(msg).Error; err != nil {
		return nil, fmt.Errorf("update contact message: %w", err)
	}
	return msg, nil
}

func (s *ContactService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.ContactMessage{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete contact message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
