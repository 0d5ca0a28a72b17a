package logging

import "go.uber.org/zap"

// Field constructors shared by handlers so log keys stay consistent.

func Path(p string) zap.Field       { return zap.String("path", p) }
func UserAgent(ua string) zap.Field { return zap.String("user_agent", ua) }
func App(name string) zap.Field     { return zap.String("app", name) }
func Host(h string) zap.Field       { return zap.String("host", h) }
func Reason(r string) zap.Field     { return zap.String("reason", r) }
func Location(l string) zap.Field   { return zap.String("location", l) }
