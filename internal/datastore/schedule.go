// schedule.go: detection window storage. The schedule gate reads windows
// through DetectionWindowsForCamera; everything else is administrator CRUD.
package datastore

import (
	stderrors "errors"

	"gorm.io/gorm"
)

// SaveDetectionWindow inserts a new detection window.
func (ds *DataStore) SaveDetectionWindow(window *DetectionWindow) error {
	if err := ds.DB.Create(window).Error; err != nil {
		return storageError(err, "save detection window")
	}
	return nil
}

// GetDetectionWindow retrieves a detection window by its ID.
func (ds *DataStore) GetDetectionWindow(id uint) (DetectionWindow, error) {
	var window DetectionWindow
	if err := ds.DB.First(&window, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return DetectionWindow{}, ErrNotFound
		}
		return DetectionWindow{}, storageError(err, "get detection window")
	}
	return window, nil
}

// UpdateDetectionWindow replaces all fields of an existing detection window.
func (ds *DataStore) UpdateDetectionWindow(window *DetectionWindow) error {
	res := ds.DB.Model(&DetectionWindow{}).Where("id = ?", window.ID).
		Select("camera_id", "day_of_week", "start_time", "end_time", "is_active").
		Updates(window)
	if res.Error != nil {
		return storageError(res.Error, "update detection window")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDetectionWindow removes a detection window by its ID.
func (ds *DataStore) DeleteDetectionWindow(id uint) error {
	res := ds.DB.Delete(&DetectionWindow{}, id)
	if res.Error != nil {
		return storageError(res.Error, "delete detection window")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCameraDetectionWindows removes all windows configured for a camera.
// Used when a camera is decommissioned.
func (ds *DataStore) DeleteCameraDetectionWindows(cameraID uint) error {
	if err := ds.DB.Where("camera_id = ?", cameraID).Delete(&DetectionWindow{}).Error; err != nil {
		return storageError(err, "delete camera detection windows")
	}
	return nil
}

// DetectionWindowsForCamera returns the windows configured for a camera on
// the given lowercase day name. Inactive windows are included; the gate
// filters on the active flag so administrators can see disabled rows.
func (ds *DataStore) DetectionWindowsForCamera(cameraID uint, dayOfWeek string) ([]DetectionWindow, error) {
	var windows []DetectionWindow
	err := ds.DB.
		Where("camera_id = ? AND day_of_week = ?", cameraID, dayOfWeek).
		Order("start_time ASC").
		Find(&windows).Error
	if err != nil {
		return nil, storageError(err, "detection windows for camera")
	}
	return windows, nil
}

// AllDetectionWindows lists every configured window, ordered by camera and day.
func (ds *DataStore) AllDetectionWindows() ([]DetectionWindow, error) {
	var windows []DetectionWindow
	err := ds.DB.Order("camera_id ASC, day_of_week ASC, start_time ASC").Find(&windows).Error
	if err != nil {
		return nil, storageError(err, "all detection windows")
	}
	return windows, nil
}
