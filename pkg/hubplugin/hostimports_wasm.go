//go:build wasm

package hubplugin

//go:wasm-module env
//export log_debug
func hostLogDebug(s string)

//go:wasm-module env
//export log_info
func hostLogInfo(s string)

//go:wasm-module env
//export log_error
func hostLogError(s string)

//go:wasm-module env
//export config_get
func hostConfigGet(key string) uint64

//go:wasm-module env
//export now_utc
func hostNowUTC() uint64

//go:wasm-module env
//export host_version
func hostHostVersion() uint64
