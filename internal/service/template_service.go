package service

import (
	"fmt"
	"strings"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
)

// TemplateInput 模板创建输入
type TemplateInput struct {
	Name        string
	Description string
	HTMLContent string
	Category    string
}

// TemplateService 邮件模板服务
type TemplateService struct {
	repo repository.TemplateRepository
}

// NewTemplateService 创建模板服务
func NewTemplateService(repo repository.TemplateRepository) *TemplateService {
	return &TemplateService{repo: repo}
}

// List 模板列表
func (s *TemplateService) List(category string) ([]models.EmailTemplate, error) {
	return s.repo.List(normalizeTemplateCategory(category))
}

// Create 创建模板
func (s *TemplateService) Create(input TemplateInput) (*models.EmailTemplate, error) {
	name := strings.TrimSpace(input.Name)
	category := normalizeTemplateCategory(input.Category)
	if name == "" || strings.TrimSpace(input.HTMLContent) == "" || category == "" {
		return nil, fmt.Errorf("%w: name, html content and category are required", ErrTemplateInvalid)
	}
	tpl := &models.EmailTemplate{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		HTMLContent: input.HTMLContent,
		Category:    category,
	}
	if err := s.repo.Create(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete 删除模板
func (s *TemplateService) Delete(id uint) error {
	tpl, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if tpl == nil {
		return ErrTemplateNotFound
	}
	return s.repo.Delete(id)
}

func normalizeTemplateCategory(raw string) string {
	category := strings.ToLower(strings.TrimSpace(raw))
	switch category {
	case "":
		return ""
	case constants.TemplateCategoryGeneral, constants.TemplateCategoryNewsletter, constants.TemplateCategoryPromotion:
		return category
	default:
		return constants.TemplateCategoryGeneral
	}
}
