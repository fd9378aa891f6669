package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT,default=5s"`
	// JWTSecret enables token validation on REST and handshake when set.
	JWTSecret string `env:"JWT_SECRET"`
	// MessagingAPIURL switches the realtime core onto the remote store.
	MessagingAPIURL *string `env:"MESSAGING_API_URL"`
}
