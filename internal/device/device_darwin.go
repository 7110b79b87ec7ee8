//go:build darwin

package device

/*
#cgo LDFLAGS: -framework CoreAudio -framework AudioToolbox -framework CoreFoundation
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>

static OSStatus getTransportType(AudioDeviceID deviceID, UInt32 *outTransport) {
	AudioObjectPropertyAddress addr = {
		kAudioDevicePropertyTransportType,
		kAudioObjectPropertyScopeGlobal,
		kAudioObjectPropertyElementMain,
	};
	UInt32 size = sizeof(UInt32);
	return AudioObjectGetPropertyData(deviceID, &addr, 0, NULL, &size, outTransport);
}

static int cfStringToUTF8(CFStringRef str, char *buf, int bufLen) {
	return CFStringGetCString(str, buf, bufLen, kCFStringEncodingUTF8) ? 1 : 0;
}
*/
import "C"

import (
	"unsafe"

	"github.com/gordonklaus/portaudio"
)

func cfStringToGo(s C.CFStringRef) string {
	const bufLen = 512
	buf := (*C.char)(C.malloc(bufLen))
	defer C.free(unsafe.Pointer(buf))
	if C.cfStringToUTF8(s, buf, bufLen) == 0 {
		return ""
	}
	return C.GoString(buf)
}

// platformTransport queries kAudioDevicePropertyTransportType via
// CoreAudio, the same cgo/CoreAudio pattern the teacher uses for its
// CGEventTap hotkey listener (internal/hotkey/hotkey_darwin.go) adapted
// to the AudioObject property API.
func platformTransport(info *portaudio.DeviceInfo) Transport {
	deviceID, ok := coreAudioDeviceID(info)
	if !ok {
		return classifyByName(info.Name)
	}

	var transport C.UInt32
	status := C.getTransportType(C.AudioDeviceID(deviceID), &transport)
	if status != 0 {
		return classifyByName(info.Name)
	}

	switch transport {
	case C.kAudioDeviceTransportTypeBluetooth, C.kAudioDeviceTransportTypeBluetoothLE:
		return TransportBluetooth
	case C.kAudioDeviceTransportTypeBuiltIn:
		return TransportBuiltIn
	case C.kAudioDeviceTransportTypeVirtual, C.kAudioDeviceTransportTypeAggregate:
		return TransportVirtual
	case C.kAudioDeviceTransportTypeContinuityCaptureWired, C.kAudioDeviceTransportTypeContinuityCaptureWireless:
		return TransportContinuityCamera
	default:
		return classifyByName(info.Name)
	}
}

// coreAudioDeviceID resolves portaudio's opaque device handle back to a
// CoreAudio AudioDeviceID. portaudio-go does not expose this mapping
// directly, so this looks the device up by matching its name against
// CoreAudio's own device list.
func coreAudioDeviceID(info *portaudio.DeviceInfo) (C.AudioDeviceID, bool) {
	var size C.UInt32
	addr := C.AudioObjectPropertyAddress{
		mSelector: C.kAudioHardwarePropertyDevices,
		mScope:    C.kAudioObjectPropertyScopeGlobal,
		mElement:  C.kAudioObjectPropertyElementMain,
	}
	if C.AudioObjectGetPropertyDataSize(C.kAudioObjectSystemObject, &addr, 0, nil, &size) != 0 {
		return 0, false
	}
	count := int(size) / int(C.sizeof_AudioDeviceID)
	if count == 0 {
		return 0, false
	}
	ids := make([]C.AudioDeviceID, count)
	if C.AudioObjectGetPropertyData(C.kAudioObjectSystemObject, &addr, 0, nil, &size, &ids[0]) != 0 {
		return 0, false
	}
	for _, id := range ids {
		if deviceName(id) == info.Name {
			return id, true
		}
	}
	return 0, false
}

func deviceName(id C.AudioDeviceID) string {
	addr := C.AudioObjectPropertyAddress{
		mSelector: C.kAudioObjectPropertyName,
		mScope:    C.kAudioObjectPropertyScopeGlobal,
		mElement:  C.kAudioObjectPropertyElementMain,
	}
	var cfStr C.CFStringRef
	size := C.UInt32(C.sizeof_CFStringRef)
	if C.AudioObjectGetPropertyData(id, &addr, 0, nil, &size, &cfStr) != 0 {
		return ""
	}
	defer C.CFRelease(C.CFTypeRef(cfStr))
	return cfStringToGo(cfStr)
}
