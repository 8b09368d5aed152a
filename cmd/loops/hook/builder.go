package hook

import (
	cfg_hook "github.com/poselab/dispatchd/pkg/configs/hook"
)

func Build[T any, R any](cfg cfg_hook.WebHook, merge func(a, b R) R) Web[T, R] {
	return Web[T, R]{
		BeforeURL: cfg.Before,
		AfterURL:  cfg.After,
		Merge:     merge,
	}
}
