package db

import (
	kfolder "github.com/poselab/dispatchd/pkg/domain/folder/db"
	kjob "github.com/poselab/dispatchd/pkg/domain/job/db"
	kprofile "github.com/poselab/dispatchd/pkg/domain/profile/db"
	kschema "github.com/poselab/dispatchd/pkg/domain/schema/db"
)

type Database interface {
	Job() kjob.Interface
	Profile() kprofile.Interface
	Folder() kfolder.Interface
	Schema() kschema.SchemaInterface
	Close() error
}
