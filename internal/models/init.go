package models

import (
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
)

// InitDefaultAdmin makes sure at least one admin user exists
func InitDefaultAdmin(name string) error {
	var count int64
	if err := DB.Model(&User{}).Where("role = ?", constants.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if name == "" {
		name = "admin"
	}
	admin := User{Name: name, Role: constants.RoleAdmin, Active: true}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	logger.Warnw("default_admin_created", "user_id", admin.ID, "name", name)
	return nil
}
