package generate

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// Variant selects the prompt template for a chat.
type Variant string

const (
	// VariantBusiness answers as the company assistant with brand-voice
	// rules and redirection when a question is out of scope.
	VariantBusiness Variant = "business"
	// VariantDocument answers strictly from one document's content.
	VariantDocument Variant = "document"
)

// FooterMessage is the fixed promotional footer optionally appended to
// business answers. Cosmetic, never semantic.
const FooterMessage = "Se preferir, pode acessar nosso site [midiacode.com](https://midiacode.com/) " +
	"e também solicitar um chat com nossa equipe."

// NoContextNotice is substituted for the retrieved context when retrieval
// matched nothing, so the model redirects gracefully instead of inventing an
// answer.
const NoContextNotice = "Nenhum conteúdo relevante foi encontrado na base de conhecimento para esta pergunta. " +
	"Informe educadamente que não há informações disponíveis sobre o assunto e redirecione para temas cobertos."

const businessTemplate = `
Você é um assistente virtual de uma empresa de tecnologia chamada Midiacode, focada em soluções de software
para Marketing de Conteúdo e Marketing Mobile. Sua função será responder perguntas sobre a empresa,
seus produtos e serviços, e fornecer informações sobre o mercado de Marketing de Conteúdo e Marketing Mobile.

Siga as regras abaixo:

1. Suas respostas devem ser claras, objetivas e adaptadas ao contexto da conversa,
utilizando o mesmo tom de voz e argumentos lógicos do interlocutor. Evite frases incompletas.
2. Evite informações pessoais ou confidenciais sobre a empresa ou seus clientes.
3. Fique atento a links e informações irrelevantes, dando prioridade ao conteúdo útil do texto.
4. Se a pergunta estiver totalmente fora do escopo da empresa Midiacode e seus produtos e serviços,
responda educadamente que a pergunta não está relacionada aos serviços da empresa e redirecione a
conversa para tópicos relevantes.
5. Se o cliente expressar insatisfação sobre a eficácia da plataforma, responda educadamente
sugerindo que ele explore mais a plataforma, destacando que a solução tem superado a concorrência
em vários testes, sem mencionar concorrentes específicos.
6. Se o cliente fizer perguntas pessoais, responda de maneira educada e profissional, mas de forma genérica.
7. Evite ser repetitivo nas respostas.

Pergunta do cliente: {{.question}}

Conteúdo de referência sobre a empresa, produtos e serviços:
{{.custom_content}}

Responda em Markdown, utilizando títulos, listas e destaques quando apropriado para boa legibilidade.
`

const documentTemplate = `
Você é um assistente virtual que responde perguntas exclusivamente sobre o conteúdo do documento
"{{.content_title}}". Não utilize conhecimento externo ao documento.

Siga as regras abaixo:

1. Responda apenas com base no conteúdo de referência abaixo.
2. Se a resposta não estiver no documento, diga que o documento não cobre o assunto.
3. Respostas claras e objetivas, em Markdown.

Pergunta: {{.question}}

Conteúdo de referência extraído do documento:
{{.custom_content}}
`

// promptFor formats the template for the variant with the question, the
// retrieved context and, for the document variant, the content title.
func promptFor(variant Variant, question, customContent, contentTitle string) (string, error) {
	var template prompts.PromptTemplate
	switch variant {
	case VariantDocument:
		template = prompts.PromptTemplate{
			Template:       documentTemplate,
			InputVariables: []string{"question", "custom_content", "content_title"},
			TemplateFormat: prompts.TemplateFormatGoTemplate,
		}
		return template.Format(map[string]any{
			"question":       question,
			"custom_content": customContent,
			"content_title":  contentTitle,
		})
	case VariantBusiness, "":
		template = prompts.PromptTemplate{
			Template:       businessTemplate,
			InputVariables: []string{"question", "custom_content"},
			TemplateFormat: prompts.TemplateFormatGoTemplate,
		}
		return template.Format(map[string]any{
			"question":       question,
			"custom_content": customContent,
		})
	default:
		return "", fmt.Errorf("generate: unknown prompt variant %q", variant)
	}
}
