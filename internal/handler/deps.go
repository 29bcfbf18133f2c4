package handler

import (
	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/session"
	"github.com/rktkdduq01/study-app-sub002/internal/app/storage"
	"github.com/rktkdduq01/study-app-sub002/internal/configs"
)

type AppDeps struct {
	Config         *configs.AppConfig
	Registry       *realtime.Registry
	Directory      *realtime.Directory
	Engine         *session.Engine
	StorageService storage.StorageService
}
