//go:build !govips || !cgo

package pipeline

func Startup() error {
	return nil
}

func Shutdown() {}

func Backend() string {
	return "stdlib"
}

func newEncoder() (Encoder, error) {
	return stdlibEncoder{}, nil
}
