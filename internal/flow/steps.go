package flow

import "github.com/stirosario/tecnos/internal/models"

// basicTestSteps holds the check list offered per device type and locale.
// Generic devices fall back to the DeviceOther list.
var basicTestSteps = map[models.DeviceType]map[models.Locale][]string{
	models.DeviceNotebook: {
		models.LocaleEsAR: {
			"Conectá el cargador y fijate si enciende alguna luz.",
			"Mantené apretado el botón de encendido 15 segundos y soltá.",
			"Sacá la batería (si es extraíble) y probá solo con el cargador.",
			"Conectala a un monitor externo para descartar la pantalla.",
		},
		models.LocaleEsES: {
			"Conecta el cargador y mira si se enciende alguna luz.",
			"Mantén pulsado el botón de encendido 15 segundos y suelta.",
			"Quita la batería (si es extraíble) y prueba solo con el cargador.",
			"Conéctalo a un monitor externo para descartar la pantalla.",
		},
		models.LocaleEn: {
			"Plug in the charger and check whether any light turns on.",
			"Hold the power button for 15 seconds and release.",
			"Remove the battery (if removable) and try on charger only.",
			"Connect an external monitor to rule out the screen.",
		},
	},
	models.DeviceDesktop: {
		models.LocaleEsAR: {
			"Revisá que el cable de corriente esté firme en la fuente y el enchufe.",
			"Fijate si la llave trasera de la fuente está en posición I.",
			"Probá otro cable de corriente o otro enchufe.",
			"Escuchá si los ventiladores giran al apretar encendido.",
		},
		models.LocaleEsES: {
			"Revisa que el cable de corriente esté firme en la fuente y el enchufe.",
			"Mira si el interruptor trasero de la fuente está en posición I.",
			"Prueba otro cable de corriente u otro enchufe.",
			"Escucha si los ventiladores giran al pulsar encendido.",
		},
		models.LocaleEn: {
			"Check the power cable is firmly seated in the PSU and the outlet.",
			"Check the rear PSU switch is set to I.",
			"Try a different power cable or outlet.",
			"Listen for the fans spinning when you press power.",
		},
	},
	models.DevicePhone: {
		models.LocaleEsAR: {
			"Dejalo cargando 20 minutos con otro cargador y cable.",
			"Mantené apretado encendido + volumen abajo 15 segundos.",
			"Fijate si vibra o muestra algo al conectarlo a una PC.",
		},
		models.LocaleEsES: {
			"Déjalo cargando 20 minutos con otro cargador y cable.",
			"Mantén pulsado encendido + volumen abajo 15 segundos.",
			"Mira si vibra o muestra algo al conectarlo a un PC.",
		},
		models.LocaleEn: {
			"Charge it for 20 minutes with a different charger and cable.",
			"Hold power + volume down for 15 seconds.",
			"Check whether it vibrates or shows anything when plugged into a PC.",
		},
	},
	models.DeviceRouter: {
		models.LocaleEsAR: {
			"Desenchufá el router, esperá 30 segundos y volvé a enchufarlo.",
			"Fijate qué luces quedan encendidas después de 2 minutos.",
			"Probá conectar un equipo por cable directo al router.",
		},
		models.LocaleEsES: {
			"Desenchufa el router, espera 30 segundos y vuelve a enchufarlo.",
			"Mira qué luces quedan encendidas después de 2 minutos.",
			"Prueba a conectar un equipo por cable directo al router.",
		},
		models.LocaleEn: {
			"Unplug the router, wait 30 seconds and plug it back in.",
			"Check which lights stay on after 2 minutes.",
			"Try connecting a device by cable directly to the router.",
		},
	},
	models.DeviceOther: {
		models.LocaleEsAR: {
			"Desconectá el equipo de la corriente 30 segundos y volvé a conectarlo.",
			"Probá otro cable o fuente de alimentación si tenés a mano.",
			"Fijate si alguna luz o pantalla muestra algo al encender.",
		},
		models.LocaleEsES: {
			"Desconecta el equipo de la corriente 30 segundos y vuelve a conectarlo.",
			"Prueba otro cable o fuente de alimentación si tienes a mano.",
			"Mira si alguna luz o pantalla muestra algo al encender.",
		},
		models.LocaleEn: {
			"Unplug the device for 30 seconds and plug it back in.",
			"Try a different cable or power supply if you have one handy.",
			"Check whether any light or screen shows anything on power-up.",
		},
	},
}

// BasicTestSteps returns the check list for a device type in the given
// locale. Unknown device types use the generic list.
func BasicTestSteps(device models.DeviceType, locale models.Locale) []string {
	byLocale, ok := basicTestSteps[device]
	if !ok {
		byLocale = basicTestSteps[models.DeviceOther]
	}
	if steps, ok := byLocale[locale]; ok {
		return steps
	}
	return byLocale[models.DefaultLocale]
}
