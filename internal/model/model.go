package model

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Star{},
	&StarAngle{},
	&SceneRun{},
	&SceneStar{},
}

////////////////////////
// CATALOG
////////////////////////

// Star is one catalog row. Positions are in the equatorial frame and Dist is
// the norm of (X, Y, Z) as stored by the catalog source. Mag is NULL when the
// source has no magnitude.
type Star struct {
	HR     int      `json:"hr" gorm:"column:hr;primaryKey;autoIncrement:false"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Z      float64  `json:"z"`
	Dist   float64  `json:"dist"`
	Mag    *float64 `json:"mag" gorm:"index"`
	Proper string   `json:"proper" gorm:"size:64"`
}

func (*Star) TableName() string {
	return "stars"
}

// StarAngle is one row of the angular-distance index. Star1HR < Star2HR.
// The unit vectors are stored next to the angle so lookups need no join.
type StarAngle struct {
	Star1HR int     `json:"star1" gorm:"column:star1_hr;primaryKey;autoIncrement:false"`
	Star2HR int     `json:"star2" gorm:"column:star2_hr;primaryKey;autoIncrement:false"`
	Angle   float64 `json:"angle" gorm:"index:idx_star_angles_angle"`
	Star1X  float64 `json:"star1X"`
	Star1Y  float64 `json:"star1Y"`
	Star1Z  float64 `json:"star1Z"`
	Star2X  float64 `json:"star2X"`
	Star2Y  float64 `json:"star2Y"`
	Star2Z  float64 `json:"star2Z"`
}

func (*StarAngle) TableName() string {
	return "star_angles"
}

////////////////////////
// SCENE LEDGER
////////////////////////

// SceneRun records one rendered scene and how it was produced
type SceneRun struct {
	gorm.Model
	Variant        string  `json:"variant" gorm:"size:16;index:idx_scene_runs_variant"`
	Seed           int64   `json:"seed" gorm:"index:idx_scene_runs_seed"` // uint64 seed, bit-cast
	RequestedCount int     `json:"requestedCount"`
	Exact          bool    `json:"exact" gorm:"default:false"`
	NoiseMaxAngle  float64 `json:"noiseMaxAngle"` // radians, 0 for the easy variant

	FocalLength float64 `json:"focalLength"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`

	Attitude   datatypes.JSON `json:"attitude"`   // 3x3 row-major, catalog frame -> device
	Quaternion datatypes.JSON `json:"quaternion"` // [w, x, y, z]
	Observer   datatypes.JSON `json:"observer"`   // ECEF metres, null when not observer-pointed

	Visible int `json:"visible"`
	Drawn   int `json:"drawn"`
	Skipped int `json:"skipped"`

	ImagePath       string `json:"imagePath" gorm:"size:512"`
	GroundTruthPath string `json:"groundTruthPath" gorm:"size:512"`

	Stars []SceneStar `json:"stars" gorm:"foreignKey:SceneRunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*SceneRun) TableName() string {
	return "scene_runs"
}

// SceneStar is the ground truth of one star in a SceneRun, in scan order
type SceneStar struct {
	ID         uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	SceneRunID uint       `json:"sceneRunId" gorm:"index:idx_scene_star_run_id"`
	Ordinal    int        `json:"ordinal"`
	HR         int        `json:"hr" gorm:"column:hr;index:idx_scene_star_hr"`
	Pixel      geom.Point `json:"pixel"` // image column/row as a 2D point
	NoiseRad   float64    `json:"noiseRad"`
	Drawn      bool       `json:"drawn"`
}

func (*SceneStar) TableName() string {
	return "scene_stars"
}
