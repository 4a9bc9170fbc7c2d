package payments

import (
	"html/template"
	"io"
	"strings"
)

var autoPostForm = template.Must(template.New("autopost").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Redirecting…</title>
  <style>
    body { font-family: -apple-system, system-ui, Segoe UI, Roboto, Arial; padding: 24px; }
    .box { max-width: 480px; margin: 40px auto; text-align: center; }
  </style>
</head>
<body>
  <div class="box">
    <h3>Redirecting to {{.Gateway}}…</h3>
    <p>Please wait.</p>

    <form id="f" method="{{.Method}}" action="{{.Action}}">
      {{range $k, $v := .Fields}}
        <input type="hidden" name="{{$k}}" value="{{$v}}">
      {{end}}
      <noscript><button type="submit">Continue</button></noscript>
    </form>

    <script>
      (function(){ document.getElementById('f').submit(); })();
    </script>
  </div>
</body>
</html>`))

var gatewayTitles = map[Provider]string{
	ProviderEsewa:      "eSewa",
	ProviderKhalti:     "Khalti",
	ProviderIMEPay:     "IME Pay",
	ProviderConnectIPS: "connectIPS",
}

// RenderAutoPostForm writes an HTML page that immediately submits the signed
// fields to the gateway.
func RenderAutoPostForm(w io.Writer, p Provider, form *FormResult) error {
	method := form.Method
	if method == "" {
		method = "POST"
	}
	return autoPostForm.Execute(w, map[string]any{
		"Gateway": gatewayTitles[p],
		"Method":  method,
		"Action":  form.Action,
		"Fields":  form.Fields,
	})
}

func renderFormHTML(p Provider, form *FormResult) (string, error) {
	var sb strings.Builder
	if err := RenderAutoPostForm(&sb, p, form); err != nil {
		return "", err
	}
	return sb.String(), nil
}
