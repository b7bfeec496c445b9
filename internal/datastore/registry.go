// registry.go: student and camera lookups used for ingress validation and
// parent notification. Administration of these tables lives outside the core.
package datastore

import (
	stderrors "errors"

	"gorm.io/gorm"
)

// GetStudent retrieves a student by ID.
func (ds *DataStore) GetStudent(id uint) (Student, error) {
	var student Student
	if err := ds.DB.First(&student, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return Student{}, ErrNotFound
		}
		return Student{}, storageError(err, "get student")
	}
	return student, nil
}

// SaveStudent inserts or updates a student.
func (ds *DataStore) SaveStudent(student *Student) error {
	if err := ds.DB.Save(student).Error; err != nil {
		return storageError(err, "save student")
	}
	return nil
}

// GetCamera retrieves a camera by ID.
func (ds *DataStore) GetCamera(id uint) (Camera, error) {
	var camera Camera
	if err := ds.DB.First(&camera, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return Camera{}, ErrNotFound
		}
		return Camera{}, storageError(err, "get camera")
	}
	return camera, nil
}

// SaveCamera inserts or updates a camera.
func (ds *DataStore) SaveCamera(camera *Camera) error {
	if err := ds.DB.Save(camera).Error; err != nil {
		return storageError(err, "save camera")
	}
	return nil
}
