package config

import "github.com/tauraamui/dragonrelay/pkg/configdef"

type defaultSettingKey uint

const (
	LISTENADDRESS defaultSettingKey = 0x0
	CAMERATITLE   defaultSettingKey = 0x1
	CAMERAADDRESS defaultSettingKey = 0x2
	JPEGQUALITY   defaultSettingKey = 0x3
)

var defaultSettings = map[defaultSettingKey]interface{}{
	LISTENADDRESS: configdef.DefaultListenAddress,
	CAMERATITLE:   "Camera",
	CAMERAADDRESS: "0",
	JPEGQUALITY:   configdef.DefaultJPEGQuality,
}

func defaultValues() configdef.Values {
	return configdef.Values{
		ListenAddress: defaultSettings[LISTENADDRESS].(string),
		Camera: configdef.Camera{
			Title:       defaultSettings[CAMERATITLE].(string),
			Address:     defaultSettings[CAMERAADDRESS].(string),
			JPEGQuality: defaultSettings[JPEGQUALITY].(int),
		},
	}
}
