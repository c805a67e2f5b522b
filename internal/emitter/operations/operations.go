// Package operations implements stage H: rendering Method IR entries into
// one Rust client submodule per tag (spec section 4.H).
package operations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kittycad/openapitor/internal/errs"
	emittypes "github.com/kittycad/openapitor/internal/emitter/types"
	"github.com/kittycad/openapitor/internal/ir"
)

// Tag renders every method belonging to one tag group as a Rust submodule
// named after the tag (spec glossary: "Tag group").
func Tag(tagName string, methods []ir.Method, table *ir.Table) (string, error) {
	sorted := make([]ir.Method, len(methods))
	copy(sorted, methods)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OpId < sorted[j].OpId })

	var structs strings.Builder
	for _, m := range sorted {
		if m.Body.Kind == ir.BodyMultipart {
			renderMultipartBodyStruct(&structs, m)
		}
	}

	var impl strings.Builder
	for _, m := range sorted {
		if err := renderMethod(&impl, m, table); err != nil {
			return "", err
		}
		if m.Pagination != nil {
			renderPaginatedMethod(&impl, m, table)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Generated by openapitor. Do not edit by hand.\n\n")
	fmt.Fprintf(&b, "use crate::types::*;\n\n")
	b.WriteString(structs.String())
	fmt.Fprintf(&b, "pub struct %s<'a> {\n    client: &'a crate::Client,\n}\n\n", moduleStruct(tagName))
	fmt.Fprintf(&b, "impl<'a> %s<'a> {\n", moduleStruct(tagName))
	fmt.Fprintf(&b, "    pub fn new(client: &'a crate::Client) -> Self {\n        Self { client }\n    }\n\n")
	b.WriteString(impl.String())
	fmt.Fprintf(&b, "}\n")
	return b.String(), nil
}

// multipartBodyStructName names the typed argument struct generated for a
// multipart/form-data operation, one field per ir.Part (spec section 3:
// Multipart([Part])).
func multipartBodyStructName(opId string) string {
	return toPascal(opId) + "Body"
}

func renderMultipartBodyStruct(b *strings.Builder, m ir.Method) {
	fmt.Fprintf(b, "#[derive(Debug, Clone)]\n")
	fmt.Fprintf(b, "pub struct %s {\n", multipartBodyStructName(m.OpId))
	for _, part := range m.Body.Parts {
		fmt.Fprintf(b, "    pub %s: %s,\n", part.Ident, emittypes.RustType(part.Type))
	}
	fmt.Fprintf(b, "}\n\n")
}

func moduleStruct(tagName string) string {
	return toPascal(tagName)
}

func toPascal(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "Default"
	}
	return b.String()
}

func renderMethod(b *strings.Builder, m ir.Method, table *ir.Table) error {
	if m.Docs != "" {
		for _, line := range strings.Split(strings.TrimSpace(m.Docs), "\n") {
			fmt.Fprintf(b, "    /// %s\n", line)
		}
	}

	args, err := methodArgs(m, table)
	if err != nil {
		return err
	}

	returnType, err := methodReturnType(m, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(b, "    pub async fn %s(&self%s) -> anyhow::Result<%s> {\n", m.OpId, args, returnType)
	renderURLBuild(b, m)
	renderBodyEncode(b, m)
	renderRequestSend(b, m, returnType)
	fmt.Fprintf(b, "    }\n\n")
	return nil
}

func methodArgs(m ir.Method, table *ir.Table) (string, error) {
	// The body argument goes after the required parameters and before the
	// optional ones (see ir.Method.OrderedParams). A zero-value Body counts
	// as no body.
	var bodyArg string
	if m.Body.Kind != ir.BodyNone && m.Body.Kind != "" {
		bodyType, err := bodyRustType(m, table)
		if err != nil {
			return "", err
		}
		bodyArg = fmt.Sprintf("body: %s", bodyType)
	}
	var parts []string
	for _, p := range m.OrderedParams() {
		if !p.Required && bodyArg != "" {
			parts = append(parts, bodyArg)
			bodyArg = ""
		}
		ty := emittypes.RustType(p.Type)
		parts = append(parts, fmt.Sprintf("%s: %s", p.Ident, ty))
	}
	if bodyArg != "" {
		parts = append(parts, bodyArg)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return ", " + strings.Join(parts, ", "), nil
}

func bodyRustType(m ir.Method, table *ir.Table) (string, error) {
	switch m.Body.Kind {
	case ir.BodyJSON, ir.BodyFormURLEncoded:
		name, ok := emittypes.TypeName(table, m.Body.Named)
		if !ok {
			return "", errs.New(errs.KindRender, errs.StageRender, "", "request body references unknown TypeId %d", m.Body.Named)
		}
		return name, nil
	case ir.BodyMultipart:
		return multipartBodyStructName(m.OpId), nil
	}
	return "()", nil
}

func methodReturnType(m ir.Method, table *ir.Table) (string, error) {
	// Stage F records a websocket upgrade under "101".
	shape, ok := m.Responses["101"]
	if !ok {
		shape, ok = m.Responses["200"]
	}
	if !ok {
		shape, ok = m.Responses["201"]
	}
	if !ok {
		shape, ok = m.Responses["204"]
	}
	if !ok {
		return "()", nil
	}

	switch shape.Kind {
	case ir.RespJSON:
		name, ok := emittypes.TypeName(table, shape.Named)
		if !ok {
			return "", errs.New(errs.KindRender, errs.StageRender, "", "response references unknown TypeId %d", shape.Named)
		}
		return name, nil
	case ir.RespBytes:
		return "bytes::Bytes", nil
	case ir.RespText:
		return "String", nil
	case ir.RespWebsocketUpgrade:
		return "tokio_tungstenite::WebSocketStream<tokio_tungstenite::MaybeTlsStream<tokio::net::TcpStream>>", nil
	case ir.RespStream:
		name, ok := emittypes.TypeName(table, shape.Named)
		if !ok {
			return "futures::stream::BoxStream<'static, bytes::Bytes>", nil
		}
		return fmt.Sprintf("futures::stream::BoxStream<'static, %s>", name), nil
	}
	return "()", nil
}

func renderURLBuild(b *strings.Builder, m ir.Method) {
	fmt.Fprintf(b, "        let mut url = self.client.base_url.join(&format!(%q", rustPathFormat(m.Path))
	for _, p := range m.ParamsPath {
		fmt.Fprintf(b, ", %s = %s", p.WireName, urlEncodeExpr(p))
	}
	fmt.Fprintf(b, "))?;\n")

	if len(m.ParamsQuery) > 0 {
		fmt.Fprintf(b, "        {\n            let mut pairs = url.query_pairs_mut();\n")
		for _, p := range m.ParamsQuery {
			if p.Required {
				fmt.Fprintf(b, "            pairs.append_pair(%q, &%s.to_string());\n", p.WireName, p.Ident)
			} else {
				fmt.Fprintf(b, "            if let Some(v) = &%s {\n                pairs.append_pair(%q, &v.to_string());\n            }\n", p.Ident, p.WireName)
			}
		}
		fmt.Fprintf(b, "        }\n")
	}
}

func urlEncodeExpr(p ir.Param) string {
	return fmt.Sprintf("percent_encoding::utf8_percent_encode(&%s.to_string(), percent_encoding::NON_ALPHANUMERIC)", p.Ident)
}

// rustPathFormat rewrites an OpenAPI path template's {param} placeholders
// into Rust format-string {param} placeholders (already compatible) and
// prefixes the base URL join target with a leading slash-stripped form
// (url::Url::join expects a relative path without a leading "/" when the
// base itself carries a path).
func rustPathFormat(path string) string {
	return strings.TrimPrefix(path, "/")
}

func renderBodyEncode(b *strings.Builder, m ir.Method) {
	switch m.Body.Kind {
	case ir.BodyJSON:
		fmt.Fprintf(b, "        let mut req = self.client.http.request(reqwest::Method::%s, url);\n", strings.ToUpper(m.Verb))
		fmt.Fprintf(b, "        req = req.json(&body);\n")
	case ir.BodyFormURLEncoded:
		fmt.Fprintf(b, "        let mut req = self.client.http.request(reqwest::Method::%s, url);\n", strings.ToUpper(m.Verb))
		fmt.Fprintf(b, "        req = req.form(&body);\n")
	case ir.BodyMultipart:
		// A fresh reqwest::multipart::Form carries its own random boundary
		// per call, and each part named ty Bytes (format: binary) includes
		// filename= (spec section 6).
		fmt.Fprintf(b, "        let mut form = reqwest::multipart::Form::new();\n")
		for _, part := range m.Body.Parts {
			if part.Filename {
				fmt.Fprintf(b, "        form = form.part(%q, reqwest::multipart::Part::bytes(body.%s.to_vec()).file_name(%q));\n", part.Name, part.Ident, part.Name)
			} else {
				fmt.Fprintf(b, "        form = form.text(%q, body.%s.to_string());\n", part.Name, part.Ident)
			}
		}
		fmt.Fprintf(b, "        let mut req = self.client.http.request(reqwest::Method::%s, url).multipart(form);\n", strings.ToUpper(m.Verb))
	default:
		fmt.Fprintf(b, "        let mut req = self.client.http.request(reqwest::Method::%s, url);\n", strings.ToUpper(m.Verb))
	}

	for _, p := range m.ParamsHeader {
		if p.Required {
			fmt.Fprintf(b, "        req = req.header(%q, %s.to_string());\n", p.WireName, p.Ident)
		} else {
			fmt.Fprintf(b, "        if let Some(v) = &%s {\n            req = req.header(%q, v.to_string());\n        }\n", p.Ident, p.WireName)
		}
	}
}

func renderRequestSend(b *strings.Builder, m ir.Method, returnType string) {
	if m.Auth {
		fmt.Fprintf(b, "        req = self.client.authenticate(req);\n")
	}
	if m.TimeoutHint != nil {
		fmt.Fprintf(b, "        req = req.timeout(std::time::Duration::from_secs(%d));\n", int(m.TimeoutHint.Seconds()))
	}

	shape, hasOK := m.Responses["101"]
	if !hasOK {
		shape, hasOK = m.Responses["200"]
	}
	switch {
	case hasOK && shape.Kind == ir.RespWebsocketUpgrade:
		fmt.Fprintf(b, "        let (stream, _) = tokio_tungstenite::connect_async(url.to_string()).await?;\n")
		fmt.Fprintf(b, "        Ok(stream)\n")
		return
	case returnType == "()":
		fmt.Fprintf(b, "        let resp = req.send().await?;\n        crate::error::check_status(resp).await?;\n        Ok(())\n")
	default:
		fmt.Fprintf(b, "        let resp = req.send().await?;\n")
		fmt.Fprintf(b, "        let resp = crate::error::check_status(resp).await?;\n")
		switch {
		case returnType == "bytes::Bytes":
			fmt.Fprintf(b, "        Ok(resp.bytes().await?)\n")
		case returnType == "String":
			fmt.Fprintf(b, "        Ok(resp.text().await?)\n")
		default:
			fmt.Fprintf(b, "        Ok(resp.json().await?)\n")
		}
	}
}

func renderPaginatedMethod(b *strings.Builder, m ir.Method, table *ir.Table) {
	streamMethod := m.Pagination.StreamMethod
	if streamMethod == "" {
		streamMethod = m.OpId + "_all_pages"
	}
	fmt.Fprintf(b, "    /// Paginated variant of `%s`, yielding every item across all pages.\n", m.OpId)
	fmt.Fprintf(b, "    pub fn %s<'b>(&'b self) -> impl futures::Stream<Item = anyhow::Result<serde_json::Value>> + 'b {\n", streamMethod)
	fmt.Fprintf(b, "        async_stream::try_stream! {\n")
	fmt.Fprintf(b, "            let mut cursor: Option<String> = None;\n")
	fmt.Fprintf(b, "            loop {\n")
	// Assumes the underlying method's only parameter is the pagination
	// cursor itself; operations with additional required parameters need
	// a hand-written wrapper (spec section 9, pagination open question).
	fmt.Fprintf(b, "                let page = self.%s(cursor.clone()).await?;\n", m.OpId)
	fmt.Fprintf(b, "                for item in page.%s {\n                    yield item;\n                }\n", m.Pagination.ItemsField)
	fmt.Fprintf(b, "                match page.%s {\n                    Some(next) => cursor = Some(next),\n                    None => break,\n                }\n", m.Pagination.NextCursorField)
	fmt.Fprintf(b, "            }\n")
	fmt.Fprintf(b, "        }\n")
	fmt.Fprintf(b, "    }\n\n")
}
