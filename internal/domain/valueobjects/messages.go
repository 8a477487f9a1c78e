package valueobjects

type Locale string

const (
	LocalePTBR Locale = "pt-BR"
	LocaleEN   Locale = "en"
)

type MessageKey string

const (
	MsgLightingLow    MessageKey = "lighting_low"
	MsgLightingHigh   MessageKey = "lighting_high"
	MsgNoPerson       MessageKey = "no_person"
	MsgInvalidPose    MessageKey = "invalid_pose"
	MsgAnalysisFailed MessageKey = "analysis_failed"

	MsgProgressPreparing MessageKey = "progress_preparing"
	MsgProgressComposing MessageKey = "progress_composing"
	MsgProgressFinishing MessageKey = "progress_finishing"

	MsgTryOnSuccess     MessageKey = "tryon_success"
	MsgServerError      MessageKey = "server_error"
	MsgUnreachable      MessageKey = "unreachable"
	MsgMissingSelection MessageKey = "missing_selection"
)

var messages = map[Locale]map[MessageKey]string{
	LocalePTBR: {
		MsgLightingLow:       "Iluminação muito baixa. Por favor, encontre um local mais claro.",
		MsgLightingHigh:      "Excesso de luz na foto. Tente uma iluminação mais suave.",
		MsgNoPerson:          "Nenhuma pessoa detectada. Verifique o enquadramento.",
		MsgInvalidPose:       "Pose inválida. Enquadre o corpo inteiro ou, no mínimo, da cintura para cima.",
		MsgAnalysisFailed:    "Não foi possível analisar a pose. Tente novamente.",
		MsgProgressPreparing: "Passo 1/3: Preparando sua imagem...",
		MsgProgressComposing: "Passo 2/3: A IA está criando o look...",
		MsgProgressFinishing: "Passo 3/3: Finalizando... Quase pronto!",
		MsgTryOnSuccess:      "Look gerado com sucesso!",
		MsgServerError:       "Ocorreu um erro no servidor.",
		MsgUnreachable:       "Não foi possível conectar à API.",
		MsgMissingSelection:  "Erro inesperado: Imagem ou roupa não encontrada.",
	},
	LocaleEN: {
		MsgLightingLow:       "Lighting is too low. Please find a brighter spot.",
		MsgLightingHigh:      "The photo is overexposed. Try softer lighting.",
		MsgNoPerson:          "No person detected. Check the framing.",
		MsgInvalidPose:       "Invalid pose. Frame your full body or at least from the waist up.",
		MsgAnalysisFailed:    "Could not analyze the pose. Please try again.",
		MsgProgressPreparing: "Step 1/3: Preparing your image...",
		MsgProgressComposing: "Step 2/3: The AI is creating the look...",
		MsgProgressFinishing: "Step 3/3: Finishing... Almost there!",
		MsgTryOnSuccess:      "Look generated successfully!",
		MsgServerError:       "A server error occurred.",
		MsgUnreachable:       "Could not connect to the API.",
		MsgMissingSelection:  "Unexpected error: photo or garment not found.",
	},
}

// Localize falls back to pt-BR for unknown locales and to the key itself
// for unknown keys.
func Localize(locale Locale, key MessageKey) string {
	table, ok := messages[locale]
	if !ok {
		table = messages[LocalePTBR]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	return string(key)
}
