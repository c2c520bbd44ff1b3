package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/multierr"

	"dcservo/core"
)

const testYaml = `
control:
  kp: 0.0004
  up_limit: 20
  symmetric_clamp: true
log:
  every: 500
  dir: /tmp/servo
console:
  stop_log_on_reject: true
plant:
  time_constant: 5ms
serial:
  device: /dev/ttyUSB1
`

func TestConfigParsing(t *testing.T) {
	Convey("parsing is successful", t, func() {
		config, err := LoadConfig([]byte(testYaml))
		So(err, ShouldBeNil)
		So(config.Validate(), ShouldBeNil)

		Convey("explicit values are kept", func() {
			So(config.Control.Kp, ShouldEqual, 0.0004)
			So(config.Control.UpLimit, ShouldEqual, 20.0)
			So(config.Log.Every, ShouldEqual, uint32(500))
			So(config.Log.Dir, ShouldEqual, "/tmp/servo")
			So(config.Plant.TimeConstant, ShouldEqual, 5*time.Millisecond)
			So(config.Serial.Device, ShouldEqual, "/dev/ttyUSB1")
			So(config.ConsoleOptions().StopLogOnReject, ShouldBeTrue)
		})

		Convey("missing values get defaults", func() {
			So(config.Control.RateHz, ShouldEqual, uint32(10000))
			So(config.Period(), ShouldEqual, uint32(100))
			So(config.Log.File, ShouldEqual, "log3.txt")
			So(config.Serial.Baud, ShouldEqual, 115200)
			So(config.Plant.MaxSpeed, ShouldBeGreaterThan, 0.0)
		})

		Convey("the controller uses a symmetric clamp", func() {
			So(config.Controller().Clamp, ShouldEqual, core.ClampSymmetric)
		})
	})

	Convey("an empty document gives the defaults", t, func() {
		config, err := LoadConfig(nil)
		So(err, ShouldBeNil)
		So(config, ShouldResemble, Default())
		So(config.Controller(), ShouldResemble, core.DefaultControllerConfig())
	})

	Convey("malformed YAML is rejected", t, func() {
		_, err := LoadConfig([]byte("control: [1, 2"))
		So(err, ShouldNotBeNil)
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("out of range settings are all reported", t, func() {
		config := Default()
		config.Control.Kp = -1
		config.Control.UpLimit = 100
		config.Control.RateHz = 2000000

		err := config.Validate()
		So(err, ShouldNotBeNil)
		So(len(multierr.Errors(err)), ShouldEqual, 3)
	})
}

func TestConfigFileAndEnv(t *testing.T) {
	Convey("a config file is read and overridden by the environment", t, func() {
		path := filepath.Join(t.TempDir(), "servo.yaml")
		So(os.WriteFile(path, []byte(testYaml), 0o644), ShouldBeNil)

		t.Setenv("SERVO_DEVICE", "/dev/ttyACM3")
		t.Setenv("SERVO_BAUD", "9600")

		config, err := LoadFile(path)
		So(err, ShouldBeNil)

		e, err := LoadEnv()
		So(err, ShouldBeNil)
		config.ApplyEnv(e)

		So(config.Serial.Device, ShouldEqual, "/dev/ttyACM3")
		So(config.Serial.Baud, ShouldEqual, 9600)
		So(config.Log.Dir, ShouldEqual, "/tmp/servo")
	})

	Convey("a missing file is an error", t, func() {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}
