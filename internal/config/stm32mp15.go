package config

// DefaultBoard is the stm32mp15 resource layout: a non-secure Linux agent
// with core clocks, resets and PWR rails, an MCU agent with its PLL3
// outputs, and a PMIC agent exposing the STPMIC1 regulators.
func DefaultBoard() Board {
	b := Board{
		Name:                  "stm32mp15",
		Vendor:                "ST",
		SubVendor:             "",
		ImplementationVersion: 0x00010000,
		Agents: []AgentConfig{
			{
				ID:   0,
				Name: "linux",
				Clocks: []ClockConfig{
					{Name: "ck_hse", Rate: 24000000, Enabled: true},
					{Name: "ck_hsi", Rate: 64000000, Enabled: true},
					{Name: "ck_csi", Rate: 4000000, Enabled: true},
					{Name: "ck_lse", Rate: 32768, Enabled: true},
					{Name: "ck_lsi", Rate: 32000, Enabled: true},
					{Name: "pll2_q", Rate: 266500000, Enabled: true},
					{Name: "pll2_r", Rate: 533000000, Enabled: true},
					{Name: "ck_mpu", Rate: 650000000, Enabled: true},
					{Name: "ck_axi", Rate: 266500000, Enabled: true},
					{Name: "bsec", Rate: 133250000, Enabled: true},
					{Name: "cryp1", Rate: 133250000},
					{Name: "gpioz", Rate: 133250000},
					{Name: "hash1", Rate: 133250000},
					{Name: "i2c4_k", Rate: 64000000},
					{Name: "i2c6_k", Rate: 64000000},
					{Name: "iwdg1", Rate: 66625000},
					{Name: "rng1_k", Rate: 4000000, Enabled: true},
					{Name: "ck_rtc", Rate: 32768, Enabled: true},
					{Name: "rtcapb", Rate: 66625000, Enabled: true},
					{Name: "spi6_k", Rate: 66625000},
					{Name: "usart1_k", Rate: 64000000},
				},
				Resets: []ResetConfig{
					{Name: "spi6"},
					{Name: "i2c4"},
					{Name: "i2c6"},
					{Name: "usart1"},
					{Name: "stgen"},
					{Name: "gpioz"},
					{Name: "cryp1"},
					{Name: "hash1"},
					{Name: "rng1"},
					{Name: "mdma"},
					{Name: "mcu"},
					{Name: "mcu_hold_boot", MCUHoldBoot: true},
				},
				Voltages: []VoltageConfig{
					{Name: "reg11", Regulator: "pwr_reg11"},
					{Name: "reg18", Regulator: "pwr_reg18"},
					{Name: "usb33", Regulator: "pwr_usb33"},
				},
			},
			{
				ID:   1,
				Name: "mcu",
				Clocks: []ClockConfig{
					{Name: "pll3_q", Rate: 196608000, Enabled: true},
					{Name: "pll3_r", Rate: 74250000, Enabled: true},
					{Name: "ck_mcu", Rate: 208877930},
				},
			},
			{
				ID:   2,
				Name: "pmic",
				Voltages: []VoltageConfig{
					{Name: "vddcore", Regulator: "buck1"},
					{Name: "vdd_ddr", Regulator: "buck2"},
					{Name: "vdd", Regulator: "buck3"},
					{Name: "v3v3", Regulator: "buck4"},
					{Name: "v1v8_audio", Regulator: "ldo1"},
					{Name: "v3v3_hdmi", Regulator: "ldo2"},
					{Name: "vtt_ddr", Regulator: "ldo3"},
					{Name: "vdd_usb", Regulator: "ldo4"},
					{Name: "vdda", Regulator: "ldo5"},
					{Name: "v1v2_hdmi", Regulator: "ldo6"},
					{Name: "vref_ddr", Regulator: "vref_ddr"},
					{Name: "bst_out", Regulator: "boost"},
					{Name: "vbus_otg", Regulator: "pwr_sw1"},
					{Name: "vbus_sw", Regulator: "pwr_sw2"},
				},
			},
		},
		Regulators: []RegulatorConfig{
			{Name: "pwr_reg11", Kind: RegulatorPWR, LevelsMV: []uint16{1100}, DefaultMV: 1100, Enabled: true},
			{Name: "pwr_reg18", Kind: RegulatorPWR, LevelsMV: []uint16{1800}, DefaultMV: 1800, Enabled: true},
			{Name: "pwr_usb33", Kind: RegulatorPWR, LevelsMV: []uint16{3300}, DefaultMV: 3300},
			{Name: "buck1", Kind: RegulatorPMIC, LevelsMV: stepLevels(725, 1500, 25), DefaultMV: 1200, Enabled: true},
			{Name: "buck2", Kind: RegulatorPMIC, LevelsMV: stepLevels(1000, 1500, 50), DefaultMV: 1350, Enabled: true},
			{Name: "buck3", Kind: RegulatorPMIC, LevelsMV: stepLevels(1000, 3400, 100), DefaultMV: 3300, Enabled: true},
			{Name: "buck4", Kind: RegulatorPMIC, LevelsMV: stepLevels(600, 3900, 100), DefaultMV: 3300, Enabled: true},
			{Name: "ldo1", Kind: RegulatorPMIC, LevelsMV: stepLevels(1700, 3300, 100), DefaultMV: 1800},
			{Name: "ldo2", Kind: RegulatorPMIC, LevelsMV: stepLevels(1700, 3300, 100), DefaultMV: 3300},
			{Name: "ldo3", Kind: RegulatorPMIC, LevelsMV: append(stepLevels(1700, 3300, 100), 500), DefaultMV: 500, Enabled: true},
			{Name: "ldo4", Kind: RegulatorPMIC, LevelsMV: []uint16{3300}, DefaultMV: 3300, Enabled: true},
			{Name: "ldo5", Kind: RegulatorPMIC, LevelsMV: stepLevels(1700, 3900, 100), DefaultMV: 2900, Enabled: true},
			{Name: "ldo6", Kind: RegulatorPMIC, LevelsMV: stepLevels(900, 1800, 100), DefaultMV: 1200},
			{Name: "vref_ddr", Kind: RegulatorPMIC, LevelsMV: []uint16{0}, DefaultMV: 0, Enabled: true},
			{Name: "boost", Kind: RegulatorPMIC, LevelsMV: []uint16{5000}, DefaultMV: 5000},
			{Name: "pwr_sw1", Kind: RegulatorPMIC, LevelsMV: []uint16{5000}, DefaultMV: 5000},
			{Name: "pwr_sw2", Kind: RegulatorPMIC, LevelsMV: []uint16{5000}, DefaultMV: 5000},
		},
	}
	ApplyBoardDefaults(&b)
	return b
}

func stepLevels(from, to, step uint16) []uint16 {
	out := make([]uint16, 0, (to-from)/step+1)
	for mv := from; mv <= to; mv += step {
		out = append(out, mv)
	}
	return out
}
