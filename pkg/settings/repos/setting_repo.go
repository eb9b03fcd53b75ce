package repos

import (
	"github.com/edgevision/edgevisiond/pkg/settings/dbconn"
	"github.com/edgevision/edgevisiond/pkg/settings/models"
	"github.com/tauraamui/xerror"
)

type SettingRepository struct {
	DB dbconn.GormWrapper
}

func (r *SettingRepository) Get(key string) (string, error) {
	setting := models.Setting{}
	if err := r.DB.Where("key = ?", key).First(&setting).Error(); err != nil {
		return "", xerror.Errorf("setting of key %s not found", key)
	}

	return setting.Value, nil
}

func (r *SettingRepository) Set(key, value string) error {
	existing := models.Setting{}
	if err := r.DB.Where("key = ?", key).First(&existing).Error(); err != nil {
		return r.DB.Create(&models.Setting{Key: key, Value: value}).Error()
	}

	existing.Value = value
	return r.DB.Save(&existing).Error()
}
