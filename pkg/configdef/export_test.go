package configdef

func IsValidListenAddress(addr string) bool {
	return isValidListenAddress(addr)
}
